package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/config"
	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/filesystem"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/network"
	"github.com/vodsync/vodsync/util"
)

// loadedLog is an event log with a display name.
type loadedLog struct {
	name string
	log  *eventlog.Log
}

func readLogFile(path string) (*eventlog.Log, error) {
	data, err := afero.ReadFile(filesystem.API(), path)
	if err != nil {
		return nil, err
	}
	l, err := eventlog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// loadLog reads path when set, otherwise looks the VOD named by args up in the directory.
func loadLog(ctx context.Context, path string, args []string) (loadedLog, error) {
	if path != "" {
		l, err := readLogFile(path)
		return loadedLog{name: path, log: l}, err
	}

	platform, vodID, err := directory.ParseVOD(args...)
	if err != nil {
		return loadedLog{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.Millis(key.DirectoryTimeoutMs))
	defer cancel()

	dir := directory.New(viper.GetString(key.DirectoryURL), "", network.Client)

	erase := util.PrintErasable(fmt.Sprintf("%s Looking up %s...", icon.Get(icon.Progress), directory.Key(platform, vodID)))
	entry, err := dir.Lookup(ctx, platform, vodID)
	if err != nil {
		erase()
		return loadedLog{}, err
	}

	l, err := dir.Fetch(ctx, entry.LogURL)
	erase()
	if err != nil {
		return loadedLog{}, err
	}

	name := entry.VODName
	if name == "" {
		name = directory.Key(platform, vodID)
	}
	return loadedLog{name: name, log: l}, nil
}
