//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
	"github.com/codelab-eim/RaspberryPiNode/pkg/config"
	"github.com/codelab-eim/RaspberryPiNode/pkg/environment"
	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
	"github.com/codelab-eim/RaspberryPiNode/pkg/logging"
	"github.com/codelab-eim/RaspberryPiNode/pkg/node"
	"github.com/codelab-eim/RaspberryPiNode/pkg/server"
)

const (
	projectName = "Raspberry Pi Node"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.LookupEnv)
	if errors.Cause(err) == pflag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		Exitf("Invalid configuration: %v\n", err)
	}

	logger, logOutput, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Dir:     cfg.Log.Dir,
		MaxSize: cfg.Log.MaxSize,
		NodeID:  cfg.Node.ID,
	})
	if err != nil {
		Exitf("Failed to initialize logging: %v\n", err)
	}
	defer logOutput.Close()

	cfg.GPIO.PinFactory = environment.ResolvePinFactory(logger, cfg.GPIO.PinFactory)

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	bridge := adapter.NewMQTTBridge(adapter.Config{
		BrokerAddress: cfg.MQTT.Broker,
		NodeID:        cfg.Node.ID,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
	}, adapter.Dependencies{Log: logger})
	if cfg.Log.Forward {
		level, _ := zerolog.ParseLevel(cfg.Log.ForwardLevel)
		logOutput.Add(logging.NewForwarder(ctx, logging.ForwarderConfig{
			Topic:    adapter.LogTopic,
			NodeID:   cfg.Node.ID,
			MinLevel: level,
		}, bridge))
	}

	n, err := node.New(node.Config{
		NodeID:         cfg.Node.ID,
		PinFactory:     cfg.GPIO.PinFactory,
		Host:           cfg.GPIO.Host,
		Port:           cfg.GPIO.Port,
		CommandTimeout: cfg.GPIO.CommandTimeout,
		LEDPin:         cfg.GPIO.LEDPin,
		EvalMode:       eval.Mode(cfg.Node.EvalMode),
		MarkErrors:     cfg.Node.MarkErrors,
	}, node.Dependencies{
		Log:    logger,
		Bridge: bridge,
	})
	if err != nil {
		Exitf("Failed to initialize node: %v\n", err)
	}

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	logger.Info().
		Str("node", cfg.Node.ID).
		Str("pin-factory", cfg.GPIO.PinFactory).
		Str("host", cfg.GPIO.Host).
		Int("port", cfg.GPIO.Port).
		Str("debug-log", logOutput.Path).
		Msg("Starting")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bridge.ReceiveLoop(ctx) })
	g.Go(func() error { return n.Run(ctx) })
	g.Go(func() error {
		// A stopped bridge ends the process
		select {
		case <-bridge.Done():
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	if cfg.Server.Port != 0 {
		httpServer, err := server.New(server.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		}, logger, n)
		if err != nil {
			Exitf("Failed to initialize Server: %v\n", err)
		}
		g.Go(func() error { return httpServer.Run(ctx) })
	}
	err = g.Wait()
	n.Terminate()
	if err != nil {
		logOutput.Close()
		Exitf("Node run failed: %v\n", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
