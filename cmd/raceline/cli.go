package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"github.com/apexsim/raceline/internal/api"
	"github.com/apexsim/raceline/internal/handlers"
)

func main() {
	if err := setup(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
	defer teardown()

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch strings.ToLower(args[0]) {
	case "serve":
		err = runServe(ctx)
	case "demo":
		seconds := 15
		if len(args) > 1 {
			seconds, err = strconv.Atoi(args[1])
			if err != nil {
				err = fmt.Errorf("bad duration %q: %w", args[1], err)
				break
			}
		}
		err = runDemo(ctx, seconds)
	case "list":
		err = listPaths()
	case "get":
		err = getPath(args[1:])
	case "delete":
		err = deletePath(args[1:])
	case "import":
		err = importPath(args[1:])
	case "trace":
		err = tracePath(args[1:])
	case "share":
		err = shareTrack(args[1:])
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
	default:
		printUsage()
	}

	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		teardown()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s %s

Usage:
  raceline serve             play stored paths until interrupted
  raceline demo [seconds]    record a synthetic lap and play it back
  raceline list              list stored path names
  raceline get <name>        print a stored path as JSON
  raceline delete <name>     remove a stored path
  raceline import <name> <file>
                             store a path from a JSON trace file
  raceline trace <name> <lat,lon>
                             georeference a path and print its WKT trace
  raceline share <name> [tag]
                             upload a stored path to the track library
  raceline version           print version information
`, AppName, Version)
}

func listPaths() error {
	registerHandlers(nil)

	res, err := eventDispatcher.Dispatch(handlers.NewEvent("path.list"))
	if err != nil {
		return err
	}
	names, _ := res.([]string)
	if len(names) == 0 {
		fmt.Println("No stored paths.")
		return nil
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func getPath(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raceline get <name>")
	}
	registerHandlers(nil)

	res, err := eventDispatcher.Dispatch(handlers.NewEvent("path.get", args[0]))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func deletePath(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raceline delete <name>")
	}
	registerHandlers(nil)

	if _, err := eventDispatcher.Dispatch(handlers.NewEvent("path.delete", args[0])); err != nil {
		return err
	}
	fmt.Println("Deleted", args[0])
	return nil
}

func importPath(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raceline import <name> <file>")
	}
	trace, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading trace file: %w", err)
	}
	registerHandlers(nil)

	if _, err := eventDispatcher.Dispatch(handlers.NewEvent("path.import", args[0], string(trace))); err != nil {
		return err
	}
	fmt.Println("Imported", args[0])
	return nil
}

func shareTrack(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raceline share <name> [tag]")
	}
	name := args[0]
	tag := "raceline"
	if len(args) > 1 {
		tag = args[1]
	}

	record := pathStore.Load(name)
	if record == nil {
		return fmt.Errorf("no path named %q", name)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("serializing %q: %w", name, err)
	}

	fileName := filepath.Join(os.TempDir(),
		fmt.Sprintf("%s_%s.json.gz", name, SessionStartTime.Format("20060102_150405")))
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating upload file: %w", err)
	}
	gzWriter := gzip.NewWriter(f)
	if _, err = gzWriter.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing upload file: %w", err)
	}
	if err = gzWriter.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flushing upload file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing upload file: %w", err)
	}
	defer os.Remove(fileName)

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("track library unreachable: %w", err)
	}

	closed, _ := record.Params["closed"].(bool)
	err = client.Upload(fileName, api.UploadMetadata{
		TrackName:  name,
		PointCount: len(record.Points),
		Closed:     closed,
		Tag:        tag,
	})
	if err != nil {
		return err
	}

	fmt.Println("Shared", name)
	return nil
}

func tracePath(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raceline trace <name> <lat,lon>")
	}
	registerHandlers(nil)

	res, err := eventDispatcher.Dispatch(handlers.NewEvent("path.trace", args[0], args[1]))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}
