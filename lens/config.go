package lens

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// Config holds the command line configuration for querying a report payload.
type Config struct {
	// InputFile is the payload file, format selected by extension.
	InputFile string
	// CacheDir enables the persistent payload cache when set.
	CacheDir string
	CacheMB  int
	// CacheMetrics logs the cache index metrics after the payload is loaded.
	CacheMetrics bool
	// Encoding and Compression of raw string pool entries.
	Encoding, Compression string
	// Queries, an empty value skips the query.
	SuitePath, TestPath, KeywordPath string
	FindID                           int
	ShowStats, ShowErrors            bool
	// Predecode decodes the whole string pool concurrently before building the tree.
	Predecode bool
	// ChartsFile renders the statistics chart when set.
	ChartsFile string
	// CustomFlags support - all stored as strings for ease of use
	CustomFlags map[string]string
}

// PoolOptions returns the string pool options named by the config.
func (c *Config) PoolOptions() (PoolOptions, error) {
	opts := PoolOptions{
		Encoding:    Encoding(c.Encoding),
		Compression: Compression(c.Compression),
	}
	return opts, opts.Validate()
}

// Validate checks the config can be used to open a report.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return errors.New("usage: -input output.js [-suite name] [-test name] [-keyword name] [-find id] [-stats]")
	} else if _, err := os.Stat(c.InputFile); err != nil {
		return fmt.Errorf("input file not readable: %w", err)
	}
	_, err := c.PoolOptions()
	return err
}

// OpenReport loads the configured payload, consulting the cache when enabled, and creates the report.
func (c *Config) OpenReport() (*Report, error) {
	opts, err := c.PoolOptions()
	if err != nil {
		return nil, err
	}
	var payload *Payload
	if c.CacheDir == "" {
		if payload, _, err = LoadPayloadFile(c.InputFile); err != nil {
			return nil, err
		}
		return NewReport(payload, opts)
	}

	store, err := NewBadgerStorage(c.CacheDir, c.CacheMB, c.CacheMetrics)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if c.CacheMetrics {
		defer func() {
			if metrics, ok := StorageCacheMetrics(store); ok {
				log.Println("Payload cache " + metrics)
			}
		}()
	}
	cache := NewPayloadCache(store)
	data, err := os.ReadFile(c.InputFile)
	if err != nil {
		return nil, fmt.Errorf("read payload failed: %w", err)
	}
	key := PayloadKey(data)
	payload, ok, err := cache.Load(key)
	if err != nil {
		return nil, err
	} else if !ok {
		if payload, _, err = LoadPayloadFile(c.InputFile); err != nil {
			return nil, err
		} else if err = cache.Save(key, payload); err != nil {
			return nil, err
		}
	}
	return NewReport(payload, opts)
}
