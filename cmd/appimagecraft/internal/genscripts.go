package internal

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var genscriptsCmd = &cobra.Command{
	Use:   "genscripts",
	Short: "Generate the build scripts without running them",
	Long: `Genscripts writes all build scripts into the directory given with --build-dir.
Run build.sh from that directory to build the project.`,
	Args: cobra.NoArgs,
	RunE: runGenscripts,
}

// errNoBuildDir is returned by commands that cannot work in a temporary
// build directory.
var errNoBuildDir = eris.New("cannot use auto-generated build dir with commands other than build, please specify build dir with -d/--build-dir")

func init() {
	rootCmd.AddCommand(genscriptsCmd)
}

func runGenscripts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if rootFlags.buildDir == "" {
		return errNoBuildDir
	}
	p, err := loadProject(ctx, rootFlags.configFile, rootFlags.builder)
	if err != nil {
		return err
	}
	if err := p.useBuildDir(ctx, rootFlags.buildDir); err != nil {
		return err
	}

	mainScript, err := p.generate(ctx)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("script", mainScript).Msg("build scripts generated")
	return nil
}
