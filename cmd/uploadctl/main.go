package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/recbee/unistore/logger"
	"github.com/recbee/unistore/uploadmanager"
)

// Launch as:
//
// > STORAGE_UPLOAD_MODE=both uploadctl --key bots/42/rec.mp4 ./rec.mp4
var (
	key         = kingpin.Flag("key", "Remote object key. Defaults to the file's base name.").String()
	envFile     = kingpin.Flag("env-file", "Path to a .env file with storage settings.").Default(".env").String()
	deleteLocal = kingpin.Flag("delete-local", "Remove the local file after all uploads succeed.").Bool()
	file        = kingpin.Arg("file", "Local file to upload.").Required().ExistingFile()
)

func main() {
	kingpin.Parse()
	defer logger.Sync()

	if err := godotenv.Load(*envFile); err != nil {
		logger.Debug("no env file loaded, reading from environment", zap.String("path", *envFile))
	}

	fileKey := *key
	if fileKey == "" {
		fileKey = filepath.Base(*file)
	}

	m := uploadmanager.New(context.Background(), fileKey)
	if !m.HasStorageConfigured() {
		logger.Fatal("no storage providers configured, check STORAGE_UPLOAD_MODE and provider settings")
	}

	m.UploadFile(*file, func(provider string, ok bool) {
		logger.Info("upload finished", zap.String("provider", provider), zap.Bool("success", ok))
	})

	if err := m.WaitForUploads(); err != nil {
		logger.Error("some uploads failed", zap.Error(err))
	}

	if url, ok := m.AzureBlobURL(); ok {
		fmt.Println(url)
	}

	if len(m.Failed()) > 0 {
		// os.Exit skips the deferred Sync.
		logger.Sync()
		os.Exit(1)
	}

	if *deleteLocal {
		if err := m.DeleteLocalFile(*file); err != nil {
			logger.Error("cannot delete local file", zap.String("file", *file), zap.Error(err))
		}
	}
}
