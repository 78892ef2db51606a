package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/cloudkucooland/HomeKitBridges/VentilationHKBridge"

	"github.com/brutella/hap"
	"github.com/brutella/hap/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"github.com/vishvananda/netlink"
)

func main() {
	var dir, file string
	var debug bool

	app := cli.App{
		Name:  "ventilation homekit bridge",
		Usage: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "/var/db/HomeKitBridges/Ventilation",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "vhkb.json",
				Usage:       "configuration file",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "enable debug",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			if debug {
				log.Debug.Enable()
			}

			fulldir, err := filepath.Abs(dir)
			if err != nil {
				log.Info.Panic("unable to get config directory", dir)
			}
			conf, err := vhkb.LoadConfig(filepath.Join(fulldir, file))
			if err != nil {
				log.Info.Panic(err.Error())
			}
			if err := conf.ResolveAddress(); err != nil {
				log.Info.Panic(err.Error())
			}
			log.Info.Printf("using ventilation unit at %s", conf.IP)

			registry := prometheus.NewRegistry()
			metrics := vhkb.NewMetrics(registry)
			client := vhkb.NewClient(conf.IP, metrics)
			vent := vhkb.NewVentilation(conf.Info(), client, metrics)
			defer vent.Close()

			// listen for interface status changes
			linkstatuschan := make(chan netlink.LinkUpdate, 5)
			disconnectchan := make(chan struct{})
			if err := netlink.LinkSubscribe(linkstatuschan, disconnectchan); err != nil {
				log.Info.Panic(err.Error())
			}
			defer close(disconnectchan)

			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			ctx, cancel := context.WithCancel(context.Background())
			var wg sync.WaitGroup

			if conf.ListenAddr != "" {
				wg.Add(1)
				go func() {
					defer wg.Done()
					vhkb.HTTPServer(ctx, conf.ListenAddr, vhkb.Router(vent.Adapter(), registry))
				}()
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				vent.Poll(ctx, conf.Poll())
			}()

		DONE:
			for {
				hapctx, hapcancel := context.WithCancel(ctx)
				s, err := hap.NewServer(hap.NewFsStore(fulldir), vent.A)
				if err != nil {
					log.Info.Panic(err)
				}
				if conf.Pin != "" {
					s.Pin = conf.Pin
				}

				// serve HomeKit
				var hapwg sync.WaitGroup
				hapwg.Add(1)
				go func() {
					defer hapwg.Done()
					s.ListenAndServe(hapctx)
				}()

				select {
				case sig := <-sigch:
					log.Info.Printf("shutdown requested by signal: %s", sig)
					hapcancel()
					hapwg.Wait()
					break DONE
				case <-linkstatuschan:
					log.Info.Printf("interface change, restarting HomeKit service")
					hapcancel()
					hapwg.Wait()
				}
			}

			cancel() // stops the status service and poller
			wg.Wait()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Info.Panic(err)
	}
}
