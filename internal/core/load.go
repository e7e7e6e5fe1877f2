package core

import (
	"context"
	"time"

	"telnetload/internal/metrics"
	"telnetload/internal/report"
	"telnetload/internal/stats"
	"telnetload/util"
)

// LoadMode runs the Driver and produces the run's outputs.  Failure
// lines are printed by the Driver's OnResult hook as sessions finish;
// LoadMode adds the summary, the report file and the stats endpoint.
type LoadMode struct {
	Driver     *Driver
	Metrics    *metrics.Collector
	Stats      *stats.Server // optional
	ReportPath string        // optional
	Logger     *util.Logger
}

// Run drives a full load run.  Session failures never make it return
// an error; only the tool's own failures do (stats bind, report write).
// The transport is closed when Run returns.
func (m *LoadMode) Run(ctx context.Context) error {
	defer m.Driver.Dialer.Close()

	if m.Stats != nil {
		if err := m.Stats.Start(ctx); err != nil {
			return err
		}
		defer m.Stats.Close()
	}

	m.Logger.Verbose("launching %d clients against %s, %v apart",
		m.Driver.Clients, m.Driver.Address, m.Driver.Stagger)

	started := time.Now()
	results := m.Driver.Run(ctx)
	finished := time.Now()

	summary := report.Summarize(results)
	m.Logger.Info("%s in %v", summary, finished.Sub(started).Round(time.Millisecond))
	if m.Metrics.PromptsReceived() > 0 {
		m.Logger.Verbose("prompt rtt avg %v, p99 %v", m.Metrics.AverageRTT(), m.Metrics.P99RTT())
	}

	if m.ReportPath == "" {
		return nil
	}
	doc := report.Build(report.Meta{
		Target:   m.Driver.Address,
		Clients:  m.Driver.Clients,
		Started:  started,
		Finished: finished,
	}, results, m.Metrics.Snapshot())
	if err := report.WriteFile(m.ReportPath, doc); err != nil {
		return err
	}
	m.Logger.Verbose("report written to %s", m.ReportPath)
	return nil
}
