// Package main is the entry point of vodsync.
package main

import (
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/cmd"
	"github.com/vodsync/vodsync/config"
	"github.com/vodsync/vodsync/internal/cache"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/where"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go cache.New(where.EventLogs(), time.Duration(viper.GetInt(key.CacheLogTTLHours))*time.Hour).CollectGarbage()

	cmd.Execute()
}
