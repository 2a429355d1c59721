package internal

import (
	"github.com/goplus/appimagecraft/internal/build"
	"github.com/goplus/appimagecraft/internal/env"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the current project and package it as an AppImage",
	Long: `Build generates the build scripts, runs them and moves the resulting AppImages
into the project root directory.

Without --build-dir, a temporary build directory is created next to the config
file and removed afterwards.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	p, err := loadProject(ctx, rootFlags.configFile, rootFlags.builder)
	if err != nil {
		return err
	}

	buildDir := rootFlags.buildDir
	temporary := buildDir == ""
	if temporary {
		buildDir, err = env.TempBuildDir(p.rootDir, p.builder)
		if err != nil {
			return err
		}
	}
	if err := p.useBuildDir(ctx, buildDir); err != nil {
		return err
	}

	runner := build.NewRunner(p.rootDir, p.buildDir)
	if temporary {
		defer func() {
			if err := runner.Cleanup(ctx); err != nil {
				log.Error().Err(err).Msg("failed to clean up build directory")
			}
		}()
	}

	mainScript, err := p.generate(ctx)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, mainScript); err != nil {
		return err
	}

	artifacts, err := runner.CollectArtifacts(ctx)
	if err != nil {
		return err
	}
	for _, artifact := range artifacts {
		log.Info().Str("artifact", artifact).Msg("build finished")
	}
	return nil
}
