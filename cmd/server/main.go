package main

import (
	"fmt"
	"net/http"

	"github.com/propella-labs/go-propella/env"
	"github.com/propella-labs/go-propella/server"
	"github.com/propella-labs/go-propella/service/logger"
	sentryutil "github.com/propella-labs/go-propella/service/sentry"
)

func main() {
	defer sentryutil.RecoverAndRaise(nil)

	server.Init()

	addr := fmt.Sprintf(":%d", env.GetInt("PORT"))
	logger.For(nil).Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.For(nil).WithError(err).Fatal("server exited")
	}
}
