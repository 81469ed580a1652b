package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/yuechaowu/Corpus2DNALLM/corpus"
	"github.com/yuechaowu/Corpus2DNALLM/logger"
	"github.com/yuechaowu/Corpus2DNALLM/tokenizer"
)

var log *zap.SugaredLogger

func main() {
	l, err := logger.New("corpus2dnallm")
	if err != nil {
		os.Exit(1)
	}
	log = l
	defer func() { _ = log.Sync() }()

	var corpusCfg corpus.Config
	if err := envconfig.Process("", &corpusCfg); err != nil {
		log.Fatalw("reading corpus configuration", "error", err)
	}
	var tokCfg tokenizer.Config
	if err := envconfig.Process("", &tokCfg); err != nil {
		log.Fatalw("reading tokenizer configuration", "error", err)
	}

	app := &cli.App{
		Name:  "corpus2dnallm",
		Usage: "convert genome assemblies into a DNA language model tokenizer",
		Commands: []*cli.Command{
			prepareGenomeCmd(),
			prepareCorpusCmd(corpusCfg),
			trainTokenizerCmd(tokCfg),
			generateConfigCmd(),
			allCmd(corpusCfg, tokCfg),
		},
	}

	log.Infow("starting run", "id", uuid.NewString())
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
