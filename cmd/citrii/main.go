package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bodgit/citrii"
	"github.com/bodgit/citrii/asset"
	"github.com/bodgit/citrii/config"
	"github.com/bodgit/citrii/database"
	"github.com/bodgit/citrii/romfs"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

// settings loads the config file, if any, and applies any flags given on
// the command line over it.
func settings(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if file := c.String("config"); file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return nil, err
		}
	}

	for name, value := range map[string]*string{
		"asset":   &cfg.Asset,
		"db":      &cfg.Database,
		"catalog": &cfg.Catalog,
		"romfs":   &cfg.RomFS,
	} {
		if c.IsSet(name) {
			*value = c.String(name)
		}
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}

	return cfg, nil
}

func setup(c *cli.Context) (*citrii.Citrii, *config.Config, error) {
	cfg, err := settings(c)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger.SetOutput(os.Stderr)
	}

	return citrii.New(logger), cfg, nil
}

func main() {
	app := cli.NewApp()

	app.Name = "citrii"
	app.Usage = "Face database editor and resource inspector"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"CITRII_CONFIG"},
			Usage:   "path to YAML config file",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"CITRII_DB"},
			Value:   config.DefaultDatabase,
			Usage:   "path to face database",
		},
		&cli.StringFlag{
			Name:  "asset",
			Value: config.DefaultAsset,
			Usage: "path to resource archive, within the RomFS image if --romfs is set",
		},
		&cli.StringFlag{
			Name:  "romfs",
			Usage: "path to RomFS image containing the resource archive",
		},
		&cli.StringFlag{
			Name:  "catalog",
			Value: config.DefaultCatalog,
			Usage: "path to texture catalog",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "info",
			Usage:       "Show the contents of the resource archive",
			Description: "",
			Action: func(c *cli.Context) error {
				m, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				if err := m.OpenAsset(cfg.Asset, cfg.RomFS); err != nil {
					return cli.NewExitError(err, 1)
				}
				a := m.Asset()

				w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
				fmt.Fprintf(w, "Version:\t%d\n", a.Version)
				for _, s := range asset.SectionRoles {
					fmt.Fprintf(w, "%s:\t%d\n", s, a.Len(s))
				}
				return w.Flush()
			},
		},
		{
			Name:        "textures",
			Usage:       "Export textures from the resource archive",
			Description: "Each texture is written as SECTION_INDEX.FORMAT and added to the catalog.",
			ArgsUsage:   "[DIRECTORY]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Usage: "export format, png or gif",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of concurrent encoders",
				},
				&cli.BoolFlag{
					Name:  "no-catalog",
					Usage: "do not record textures in the catalog",
				},
			},
			Action: func(c *cli.Context) error {
				m, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				if c.IsSet("format") {
					cfg.Export.Format = c.String("format")
				}
				if c.IsSet("workers") {
					cfg.Export.Workers = c.Int("workers")
				}
				if err := cfg.Validate(); err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := m.OpenAsset(cfg.Asset, cfg.RomFS); err != nil {
					return cli.NewExitError(err, 1)
				}
				if !c.Bool("no-catalog") {
					if err := m.OpenCatalog(cfg.Catalog); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				if c.NArg() > 0 {
					if err := os.MkdirAll(c.Args().First(), 0o755); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				if err := m.ExportTextures(context.Background(), citrii.ExportOptions{
					Dir:     c.Args().First(),
					Format:  cfg.Export.Format,
					Workers: cfg.Export.Workers,
				}); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "profiles",
			Usage:       "List the owned profiles in the face database",
			Description: "",
			Action: func(c *cli.Context) error {
				m, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				if err := m.OpenDatabase(cfg.Database); err != nil {
					return cli.NewExitError(err, 1)
				}

				profiles, err := m.Profiles()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
				fmt.Fprintln(w, "SLOT\tNAME\tAUTHOR\tCREATED")
				for _, p := range profiles {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Slot, p.Name, p.Author, p.Created.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			},
		},
		{
			Name:        "edit",
			Usage:       "Adjust a property of an owned profile",
			Description: "STEPS may be negative. Pages and properties are named as in the face editor, e.g. \"hair style 3\".",
			ArgsUsage:   "SLOT PAGE PROPERTY [STEPS]",
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				slot, err := strconv.Atoi(c.Args().Get(0))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				page, err := database.ParsePage(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				property, err := database.ParseProperty(c.Args().Get(2))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				steps := 1
				if c.NArg() > 3 {
					if steps, err = strconv.Atoi(c.Args().Get(3)); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				m, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				if err := m.OpenDatabase(cfg.Database); err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := m.Edit(slot, page, property, steps); err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := m.Save(); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "verify",
			Usage:       "Check the checksums of the face database",
			Description: "",
			Action: func(c *cli.Context) error {
				_, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				b, err := os.ReadFile(cfg.Database)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				crcA, crcB, err := database.Checksums(b)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Fprintf(c.App.Writer, "%04X %04X\n", crcA, crcB)

				if err := database.Verify(b); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "extract",
			Usage:       "Copy a file out of a RomFS image",
			Description: "With no PATH, every file in the image is listed.",
			ArgsUsage:   "[PATH [FILE]]",
			Action: func(c *cli.Context) error {
				_, cfg, err := setup(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if cfg.RomFS == "" {
					return cli.NewExitError("no RomFS image given", 1)
				}

				b, err := os.ReadFile(cfg.RomFS)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				im, err := romfs.New(b)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if c.NArg() < 1 {
					if err := im.Walk(func(name string, size uint64) error {
						_, err := fmt.Fprintf(c.App.Writer, "%10d %s\n", size, name)
						return err
					}); err != nil {
						return cli.NewExitError(err, 1)
					}
					return nil
				}

				path := c.Args().First()
				data, err := im.Open(strings.Split(strings.Trim(path, "/"), "/")...)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out := c.Args().Get(1)
				if out == "" {
					out = path[strings.LastIndex(path, "/")+1:]
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
