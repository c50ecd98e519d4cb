package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"errortrail/src/connectors"
	"errortrail/src/controller"
	"errortrail/src/database"
	"errortrail/src/demo"
	"errortrail/src/model"
	"errortrail/src/repository"
	"errortrail/src/server"
	"errortrail/src/utils"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	utils.SetupLogger()

	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "errortrail"
	app.Usage = "The errortrail command line interface"
	app.Version = Version
	app.Writer = out

	app.Commands = []cli.Command{
		serveCMD,
		listCMD,
		showCMD,
		pruneCMD,
	}
	return app
}

var remoteFlag = cli.StringFlag{
	Name:  "remote",
	Usage: "read from a running server at this base URL instead of the local database",
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the demo server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve the demo application with error capture and the error routes`,
	}
	listCMD = cli.Command{
		Name:      "list",
		Usage:     "print the most recent errors",
		Action:    listAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "limit", Value: repository.DefaultListLimit, Usage: "maximum number of records"},
			remoteFlag,
		},
		Description: `Print recent errors as JSON, newest first`,
	}
	showCMD = cli.Command{
		Name:        "show",
		Usage:       "print one error",
		Action:      showAction,
		ArgsUsage:   "ID",
		Flags:       []cli.Flag{remoteFlag},
		Description: `Print a single error as JSON`,
	}
	pruneCMD = cli.Command{
		Name:      "prune",
		Usage:     "delete old errors",
		Action:    pruneAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.DurationFlag{Name: "older-than", Value: 7 * 24 * time.Hour, Usage: "delete records older than this"},
		},
		Description: `Delete errors older than the given age from the local database`,
	}
)

type errorReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.ErrorRecordResponse, error)
	FetchOne(ctx context.Context, id uint) (*model.ErrorRecordResponse, bool, error)
}

type remoteReader struct {
	client *connectors.ErrorsClient
}

func (r remoteReader) ListRecent(ctx context.Context, limit int) ([]model.ErrorRecordResponse, error) {
	return r.client.ListErrors(ctx, limit)
}

func (r remoteReader) FetchOne(ctx context.Context, id uint) (*model.ErrorRecordResponse, bool, error) {
	return r.client.GetError(ctx, id)
}

func readerFor(c *cli.Context) (errorReader, error) {
	if remote := c.String("remote"); remote != "" {
		config := connectors.GetConfig()
		config.BaseURL = remote
		return remoteReader{client: connectors.NewErrorsClient(config)}, nil
	}

	if err := database.InitMainDB(); err != nil {
		return nil, err
	}
	return controller.NewErrorsController(repository.NewExceptionRepository(), controller.GetConfig().DefaultLimit), nil
}

func serveAction(_ *cli.Context) error {
	logrus.WithField("cmd", "serve").Info("Starting serve CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	app := server.NewApp(repository.NewExceptionRepository(), demo.NewRegistry(), demo.Routes)
	return app.Run()
}

func listAction(c *cli.Context) error {
	reader, err := readerFor(c)
	if err != nil {
		return err
	}

	records, err := reader.ListRecent(context.Background(), c.Int("limit"))
	if err != nil {
		logrus.WithError(err).Error("Failed to list errors")
		return err
	}
	if records == nil {
		records = []model.ErrorRecordResponse{}
	}
	return printJSON(c.App.Writer, records)
}

func showAction(c *cli.Context) error {
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil || id == 0 {
		return errors.New("show: a positive numeric ID is required")
	}

	reader, err := readerFor(c)
	if err != nil {
		return err
	}

	record, found, err := reader.FetchOne(context.Background(), uint(id))
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch error")
		return err
	}
	if !found {
		return fmt.Errorf("error %d not found", id)
	}
	return printJSON(c.App.Writer, record)
}

func pruneAction(c *cli.Context) error {
	olderThan := c.Duration("older-than")
	if olderThan <= 0 {
		return errors.New("prune: --older-than must be positive")
	}

	if err := database.InitMainDB(); err != nil {
		return err
	}

	removed, err := repository.NewExceptionRepository().Expire(context.Background(), time.Now().Add(-olderThan))
	if err != nil {
		logrus.WithError(err).Error("Failed to prune errors")
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "removed %d errors\n", removed)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
