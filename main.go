package main

import (
	"context"
	"time"

	"github.com/lendfast/dealready/internal/app"
)

// @title           DealReady API
// @version         1.0
// @description     DealReady provides deal readiness, submission tracking and session security APIs for brokers and lenders.
// @contact.name    Platform Support
// @contact.email   support@lendfast.dev
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the provider access token.
func main() {
	application := app.New()
	wait := application.Start()
	<-wait

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx)
}
