package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/twetter99/afluencia360/alerting"
	"github.com/twetter99/afluencia360/api"
	"github.com/twetter99/afluencia360/export"
	"github.com/twetter99/afluencia360/external/crtm"
	"github.com/twetter99/afluencia360/geo"
	"github.com/twetter99/afluencia360/report"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func initConfig(file string) {
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("mongo.conn", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "afluencia360")

	if file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			log.WithError(err).Fatal("read config file")
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("afluencia")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func initLog() {
	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}

func openMongo(connURI string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connURI))
	if nil != err {
		log.WithError(err).Fatal("create mongo client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Connect(ctx); nil != err {
		log.WithError(err).Fatal("connect mongo database")
	}
	if err := client.Ping(ctx, readpref.Primary()); nil != err {
		log.WithError(err).Fatal("ping mongo database")
	}
	return client
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "c", "", "config file path")
	flag.Parse()

	initConfig(configFile)
	initLog()

	connURI := viper.GetString("mongo.conn")
	database := viper.GetString("mongo.database")

	client := openMongo(connURI)
	if err := schema.NewMongoDBIndexer(connURI, database).IndexAll(); err != nil {
		log.WithError(err).Fatal("create mongo indexes")
	}

	mongoStore := store.NewMongoStore(client, database)
	if err := mongoStore.SeedReportTemplates(report.DefaultTemplates()); err != nil {
		log.WithError(err).Warn("seed report templates")
	}

	alerts := alerting.NewEngine(mongoStore, mongoStore, mongoStore)
	reports := report.NewBuilder(mongoStore, mongoStore, mongoStore)
	deliverer := crtm.NewClient(
		viper.GetString("crtm.endpoint"),
		viper.GetString("crtm.api_key"),
	)
	exports := export.NewRunner(mongoStore, mongoStore, mongoStore, deliverer)

	server := api.NewServer(mongoStore, alerts, reports, exports, viper.GetBool("server.trace"))
	if endpoint := viper.GetString("nominatim.endpoint"); endpoint != "" {
		server.SetGeocoder(geo.NewNominatimSearcher(endpoint))
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("shutdown server")
		}
	}()

	addr := viper.GetString("server.address")
	log.WithField("addr", addr).Info("afluencia360 api starting")
	if err := server.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("run server")
	}
}
