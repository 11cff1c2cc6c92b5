package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/config"
	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/dispatch"
	"github.com/vodsync/vodsync/engine"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/internal/cache"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/network"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/reconcile"
	"github.com/vodsync/vodsync/resolver"
	"github.com/vodsync/vodsync/server"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/util"
	"github.com/vodsync/vodsync/where"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on")
	lo.Must0(viper.BindPFlag(key.ServerAddr, serveCmd.Flags().Lookup("addr")))

	serveCmd.Flags().StringP("transport", "t", "", "Secondary player (embedded, mpv)")
	lo.Must0(serveCmd.RegisterFlagCompletionFunc("transport", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"embedded", "mpv"}, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.PlayerTransport, serveCmd.Flags().Lookup("transport")))

	serveCmd.Flags().String("on-lost", "", "What to do when the player goes away (recreate, drop)")
	lo.Must0(viper.BindPFlag(key.PlayerOnLost, serveCmd.Flags().Lookup("on-lost")))

	serveCmd.Flags().Int("offset", 0, "Offset in milliseconds added to the music position")
	lo.Must0(viper.BindPFlag(key.SyncOffsetMs, serveCmd.Flags().Lookup("offset")))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Run the sync server.

The primary stream integration posts time updates to /sessions/{id}/time.
With the embedded transport, open /player/{id} in a browser tab to hear the music.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handleErr(serve(ctx))
	},
}

func serve(ctx context.Context) error {
	transport := viper.GetString(key.PlayerTransport)
	if transport == "mpv" {
		checkMPV(viper.GetString(key.PlayerMpvPath))
		// Sockets of players that died with a previous run.
		_ = util.Delete(where.Temp())
	}

	policy, err := dispatch.ParsePolicy(viper.GetString(key.PlayerOnLost))
	if err != nil {
		return err
	}

	hub := player.NewHub()
	factory, err := dispatch.ForKind(transport, hub, viper.GetString(key.PlayerMpvPath))
	if err != nil {
		return err
	}

	base := viper.GetString(key.DirectoryURL)
	dir := directory.New(base, "", network.Client)

	res := resolver.NewBackground(ctx, resolver.New(
		resolver.NewHTTPSearcher(base, float64(viper.GetInt(key.ResolverRate)), network.Client),
		resolver.NewFileStore(where.Matches()),
		config.Millis(key.ResolverTimeoutMs),
	))

	rec := reconcile.New(res, dispatch.New(factory, policy), reconcile.Options{
		Offset:    config.Millis(key.SyncOffsetMs),
		Threshold: config.Millis(key.SyncDriftThresholdMs),
		Volume:    viper.GetInt(key.PlayerVolume),
	})

	disk := cache.New(where.EventLogs(), time.Duration(viper.GetInt(key.CacheLogTTLHours))*time.Hour)
	nowPlaying := engine.NewNowPlaying(where.NowPlaying())
	if err := nowPlaying.Clear(); err != nil {
		log.Warnf("serve: clear now playing: %v", err)
	}

	eng := engine.New(dir, rec, engine.Options{
		TickInterval: config.Millis(key.SyncTickIntervalMs),
		LoadTimeout:  config.Millis(key.DirectoryTimeoutMs),
		Logs:         eventlog.NewStore(disk),
		NowPlaying:   nowPlaying,
	})

	srv := server.New(eng, hub, server.Options{
		Addr:          viper.GetString(key.ServerAddr),
		RatePerMinute: viper.GetInt(key.ServerRatePerMinute),
		CorsOrigins:   viper.GetStringSlice(key.ServerCorsOrigins),
	})

	fmt.Printf(
		"%s listening on %s %s\n",
		icon.Get(icon.Music),
		style.Fg(color.Purple)("http://"+viper.GetString(key.ServerAddr)),
		style.Faint(fmt.Sprintf("(%s player, %s on loss)", transport, policy)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		eng.Shutdown()
		hub.Close()
		res.Wait()
		log.Info("serve: stopped")
		return nil
	})

	return g.Wait()
}
