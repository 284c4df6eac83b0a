package main

import (
	"context"

	"kmeal-backend/cmd/kmeal-cli/commands"
	"kmeal-backend/lib/serviceutil"
	"kmeal-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(context.Background(), "kmeal-cli")
	telemetry.InstrumentPerfStats(context.Background())

	commands.ExecuteContext(serviceutil.SignalContext())
}
