package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

const usage = `usage: textclass [-config file] <command> [flags]

commands:
  import     load labelled documents from a JSONL file into the store
  train      train a model on the stored documents
  predict    classify a text with a stored model
  similar    list the nearest training documents of a knn model
  models     list stored models
  history    list the audited predictions of a model
  stopwords  suggest stop words from the stored corpus
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "textclass: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("textclass", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "textclass.yaml", "Config file (missing file uses defaults)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	a, err := newApp(*configPath, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "import":
		return a.importDocs(ctx, rest)
	case "train":
		return a.train(ctx, rest)
	case "predict":
		return a.predict(ctx, rest)
	case "similar":
		return a.similar(ctx, rest)
	case "models":
		return a.models(ctx, rest)
	case "history":
		return a.history(ctx, rest)
	case "stopwords":
		return a.stopwords(ctx, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
