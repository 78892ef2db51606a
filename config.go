package vhkb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"
)

type Config struct {
	IP           string // device address, host or host:port
	Name         string // what HomeKit shows
	Pin          string // HomeKit setup pin (80899303)
	ListenAddr   string // status/metrics listener (:8998), empty to disable
	PollInterval int    // seconds between pushes to HomeKit, 0 to disable
	DiscoverUSN  string // SSDP USN substring, used when IP is empty
	SerialNumber string
	Model        string
	Manufacturer string
}

func defaultConfig() Config {
	return Config{
		Name:         "Ventilation",
		Pin:          "80899303",
		SerialNumber: "1130",
		Model:        "ventilation",
		Manufacturer: "cloudkucooland",
	}
}

// LoadConfig reads the JSON config; a missing file gives the defaults.
func LoadConfig(filename string) (*Config, error) {
	conf := defaultConfig()

	raw, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info.Printf("unable to open config %s: using defaults (%+v)", filename, conf)
		return &conf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}

	if err := json.Unmarshal(raw, &conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}
	log.Info.Printf("using config: %+v", conf)

	return &conf, nil
}

// ResolveAddress fills in IP from SSDP discovery when it is not configured.
func (c *Config) ResolveAddress() error {
	if c.IP != "" {
		return nil
	}
	if c.DiscoverUSN == "" {
		return ErrNoAddress
	}
	ip, err := Discover(c.DiscoverUSN)
	if err != nil {
		return err
	}
	c.IP = ip
	return nil
}

func (c *Config) Info() accessory.Info {
	return accessory.Info{
		Name:         c.Name,
		SerialNumber: c.SerialNumber,
		Manufacturer: c.Manufacturer,
		Model:        c.Model,
		Firmware:     "0.0.1",
	}
}

func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}
