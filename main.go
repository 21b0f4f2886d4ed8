package main

import (
	"errors"
	"flag"

	"datatrans/config"
	"datatrans/internal"
	"datatrans/services"
)

func main() {

	logger := internal.NewLogger("internal", false, nil)

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	logger.Info("using config file: " + *configPath)
	conf, err := config.GetConfig(*configPath)
	if err != nil {
		logger.Error("boot", err)
		return
	}

	var mongo services.Database
	if conf.Mongo.Enabled {
		mongo, err = internal.NewMongoClient(conf)
		if err != nil {
			logger.Error("mongo client", err)
			return
		}
		logger.Info("mongo client initialized")
	} else {
		logger.Error("boot", errors.New("payment records need mongo; enable it in the config"))
		return
	}

	payments, err := internal.NewPayments(conf)
	if err != nil {
		logger.Error("payments service", err)
		return
	}
	paymentsLogger := internal.NewLogger("payments", conf.IsDebug, mongo)
	payments.SetLogger(paymentsLogger)
	payments.SetDatabase(mongo)
	payments.SetNotifier(internal.NewLogNotifier(paymentsLogger))

	gateway := internal.NewUppClient(conf, payments.Signer())
	gateway.SetLogger(internal.NewLogger("gateway", conf.IsDebug, mongo))
	payments.SetGatewayAPI(gateway)

	server := internal.NewServer(conf)
	server.SetLogger(internal.NewLogger("server", conf.IsDebug, mongo))
	server.SetPaymentsService(payments)

	err = server.Start()
	if err != nil {
		logger.Error("server start", err)
		return
	}

}
