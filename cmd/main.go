/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vidforge/vidforge"
	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/database"
	"github.com/vidforge/vidforge/internal/notification"
)

type vidforgeCli struct {
	cmd *cobra.Command
}

type vidforgeInstance struct {
	engine *vidforge.Vidforge
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *vidforgeInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("vidforge.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupVidforge(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf

		return nil
	}
}

func setupVidforge(cfg *config.Configuration) (*vidforge.Vidforge, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}
	return vidforge.NewVidforge(db)
}

// NewCLI assembles the root command and its subcommands.
func NewCLI() *vidforgeCli {
	var instance vidforgeInstance
	rootCmd := &cobra.Command{
		Use:   "vidforge",
		Short: "video generation orchestration with credit accounting",
	}
	rootCmd.PersistentPreRunE = preRun(&instance)
	rootCmd.AddCommand(serverCommands(&instance))
	rootCmd.AddCommand(sweepCommands(&instance))

	return &vidforgeCli{cmd: rootCmd}
}

func (c *vidforgeCli) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
