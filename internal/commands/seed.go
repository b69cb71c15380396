package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/internal/seed"
)

var errSeedSource = errors.New("pass either --file or --generate")

func newSeedCommand(load configLoader) *cobra.Command {
	var (
		file                          string
		generate                      bool
		schools, classrooms, students int
		fakerSeed                     int64
	)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixture data into the configured database",
		Long: `Insert schools, classrooms, students and administrators from a YAML
fixture, or generate a fake data set.

Examples:
  # Load a fixture
  schoolhub seed --file ./fixtures/demo.yaml

  # Generate 3 schools with 4 classrooms and 25 students each
  schoolhub seed --generate --schools 3 --classrooms 4 --students 25

Generated accounts use their username as password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == !generate {
				return errSeedSource
			}

			var fixture *seed.Fixture
			if file != "" {
				f, err := seed.LoadFile(file)
				if err != nil {
					return err
				}
				fixture = f
			} else if fakerSeed != 0 {
				fixture = seed.NewGenerator(fakerSeed).Generate(schools, classrooms, students)
			} else {
				fixture = seed.Generate(schools, classrooms, students)
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := newLogger(cmd.ErrOrStderr(), cfg)
			a, err := newStoreApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := seed.Apply(ctx, a.repo, a.hasher(), fixture, logger.Logger)
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %d users, %d schools, %d classrooms, %d students, %d enrollments\n",
				sum.Users, sum.Schools, sum.Classrooms, sum.Students, sum.Enrollments)
			return err
		},
	}

	seedCmd.Flags().StringVar(&file, "file", "", "YAML fixture to load")
	seedCmd.Flags().BoolVar(&generate, "generate", false, "generate fake data instead of reading a file")
	seedCmd.Flags().IntVar(&schools, "schools", 3, "schools to generate")
	seedCmd.Flags().IntVar(&classrooms, "classrooms", 4, "classrooms per generated school")
	seedCmd.Flags().IntVar(&students, "students", 25, "students per generated school")
	seedCmd.Flags().Int64Var(&fakerSeed, "seed", 0, "random seed for generated data (0 = time based)")
	return seedCmd
}
