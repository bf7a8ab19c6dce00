// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/protocol"
)

func collectionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "collection",
		Aliases: []string{"c"},
		Usage:   "Collection file (default: the home collection)",
	}
}

func urlFlag(r *Runner) cli.Flag {
	return &cli.StringFlag{
		Name:  "url",
		Usage: "WebSocket URL of a running backend",
		Value: r.config.Client.URL,
	}
}

// serveCommand runs the backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the backend serving the WebSocket API and the web client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on",
				Value: r.config.Server.Host,
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   r.config.Server.Port,
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Directory with the web client build",
				Value: r.config.Server.StaticDir,
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "Do not serve static files",
				Value: r.config.App.Dev,
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand runs the terminal client
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse and play the collection of a running backend in the terminal",
		Flags:  []cli.Flag{urlFlag(r)},
		Action: r.TUI,
	}
}

// searchCommand handles catalogue lookups
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the online catalogues for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "fuzzy, by-artist or by-label",
				Value:   protocol.KindFuzzy,
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tracks (0 for no limit)",
				Value:   r.config.Search.Limit,
			},
			&cli.BoolFlag{
				Name:  "add",
				Usage: "Add the tracks found to the collection",
			},
			collectionFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "Find the best match for a title and artist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Song title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Aliases:  []string{"a"},
						Usage:    "Artist name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "video",
						Usage: "Only look for the video, skipping the catalogue",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SearchTrack,
			},
		},
	}
}

// collectionCommand handles collection files
func collectionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"col"},
		Usage:   "Collection file operations",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create an empty collection",
				Flags:  []cli.Flag{collectionFlag()},
				Action: r.CollectionInit,
			},
			{
				Name:  "info",
				Usage: "Show the size of a collection",
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CollectionInfo,
			},
			{
				Name:  "import",
				Usage: "Copy every track of another collection into this one",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.BoolFlag{
						Name:  "keep-user-data",
						Usage: "Keep ratings and play counts of tracks already present",
					},
				},
				Action: r.CollectionImport,
			},
			{
				Name:  "export",
				Usage: "Write the tracks to a csv, md, txt or yaml file",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Heading of Markdown and text exports",
					},
				},
				Action: r.CollectionExport,
			},
			{
				Name:  "load",
				Usage: "Add the tracks of a csv or yaml export",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace tracks already in the collection",
					},
				},
				Action: r.CollectionLoad,
			},
			{
				Name:  "validate",
				Usage: "Check that a file is a collection",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.CollectionValidate,
			},
		},
	}
}

// playlistCommand handles playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Look up the songs of a playlist CSV and add them to the collection",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent lookups",
						Value:   4,
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace tracks already in the collection",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Look the songs up without saving them",
					},
				},
				Action: r.PlaylistImport,
			},
			{
				Name:      "link",
				Usage:     "Create an anonymous YouTube playlist from video ids",
				ArgsUsage: "<yt_id>...",
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.IntFlag{
						Name:  "random",
						Usage: "Pick this many random tracks of the collection instead",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the playlist in the browser",
					},
				},
				Action: r.PlaylistLink,
			},
		},
	}
}

// remoteCommand talks to a running backend
func remoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Query a running backend over its WebSocket API",
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the backend version and default collection",
				Flags: []cli.Flag{
					urlFlag(r),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RemoteInfo,
			},
			{
				Name:  "contains",
				Usage: "Check whether the collection has a video id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "yt_id",
					},
				},
				Flags:  []cli.Flag{urlFlag(r), collectionFlag()},
				Action: r.RemoteContains,
			},
			{
				Name:   "random",
				Usage:  "Ask the backend for a random track of the collection",
				Flags:  []cli.Flag{urlFlag(r), collectionFlag()},
				Action: r.RemoteRandom,
			},
		},
	}
}
