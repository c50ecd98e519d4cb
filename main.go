package main

import (
	"fmt"
	"os"
	"time"

	"errortrail/src/database"
	"errortrail/src/demo"
	"errortrail/src/repository"
	"errortrail/src/server"
	"errortrail/src/utils"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	utils.SetupLogger()
	defer handlePanic()

	// Initialize the error store
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	app := server.NewApp(repository.NewExceptionRepository(), demo.NewRegistry(), demo.Routes)
	if err := app.Run(); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
