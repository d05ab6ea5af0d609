// cmd/scsync synchronizes one contract's TRADES and DEPTH files for a
// single trade date onto a unified nanosecond timeline, writing the
// rewritten -SYNC files and a verification manifest.
//
// Usage:
//
//	go run ./cmd/scsync --contract=ESZ6 --date=2026-03-05
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scsync/internal/adminapi"
	"scsync/internal/clock"
	"scsync/internal/config"
	"scsync/internal/depth"
	"scsync/internal/diag"
	"scsync/internal/ledger"
	"scsync/internal/lock"
	"scsync/internal/locator"
	"scsync/internal/logger"
	"scsync/internal/metrics"
	"scsync/internal/notify"
	"scsync/internal/progress"
	storeredis "scsync/internal/store/redis"
	"scsync/internal/store/sqlite"
	"scsync/internal/syncer"
	"scsync/internal/trades"
	"scsync/internal/verify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	contract := flag.String("contract", "", "Contract symbol, e.g. ESZ6")
	dateStr := flag.String("date", "", "Trade date, YYYY-MM-DD")
	force := flag.Bool("force", false, "Ignore the ledger's skip-if-complete check")
	flag.Parse()

	if *contract == "" || *dateStr == "" {
		log.Fatal("[scsync] --contract and --date are required")
	}
	date, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		log.Fatalf("[scsync] invalid --date %q: %v", *dateStr, err)
	}

	cfg := config.Load()
	slogLogger := logger.Init("scsync", parseLevel(cfg.LogLevel))
	ctx := logger.WithRunID(context.Background(), logger.NewRunID(*contract, *dateStr))

	health := metrics.NewHealthStatus()
	prom := metrics.NewMetrics()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("[scsync] ledger open failed: %v", err)
	}
	defer l.Close()
	health.SetLedgerOK(true)

	manifestStore, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[scsync] sqlite open failed: %v", err)
	}
	defer manifestStore.Close()
	health.SetSQLiteOK(true)

	hub := progress.NewHub()
	admin := adminapi.New(l, hub, cfg.AdminTOTPSecret)
	adminSrv := &http.Server{Addr: cfg.AdminAddr, Handler: admin}
	go func() {
		log.Printf("[scsync] admin API listening on %s", cfg.AdminAddr)
		if err := adminSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[scsync] admin API server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[scsync] shutdown signal received")
		removePartialOutputs()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Stop(shutdownCtx)
		adminSrv.Shutdown(shutdownCtx)
		os.Exit(130)
	}()

	if !*force {
		skip, err := l.ShouldSkip(*contract, *dateStr)
		if err != nil {
			log.Fatalf("[scsync] ledger lookup failed: %v", err)
		}
		if skip {
			prom.LedgerHits.Inc()
			log.Printf("[scsync] %s/%s already Complete, skipping (use --force to override)", *contract, *dateStr)
			return
		}
	}

	notifier := buildNotifier(cfg)

	var eventStream *storeredis.EventStream
	var distLock *lock.Lock
	if es, err := storeredis.New(storeredis.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}); err != nil {
		log.Printf("[scsync] WARNING: redis unavailable, continuing without lock/event stream: %v", err)
		health.SetRedisConnected(false)
	} else {
		eventStream = es
		defer eventStream.Close()
		health.SetRedisConnected(true)
		distLock = lock.New(es.Client(), 10*time.Minute)
	}

	owner := fmt.Sprintf("scsync-%d", os.Getpid())
	if distLock != nil {
		lockStart := time.Now()
		if err := distLock.Acquire(ctx, *contract, *dateStr, owner); err != nil {
			log.Fatalf("[scsync] could not acquire lock for %s/%s: %v", *contract, *dateStr, err)
		}
		prom.LockWaitDuration.Observe(time.Since(lockStart).Seconds())
		defer distLock.Release(ctx, *contract, *dateStr, owner)
	}

	publish := func(state, status, reason string) {
		if eventStream == nil {
			return
		}
		if err := eventStream.Publish(ctx, storeredis.RunEvent{
			Contract: *contract, TradeDate: *dateStr, State: state, Status: status, Reason: reason,
		}); err != nil {
			slog.WarnContext(ctx, "publish run event failed", logger.WithTrace(ctx)...)
		}
	}
	publish(syncer.Streaming.String(), "", "")

	loc := locator.New(cfg.DataDir, cfg.OutputDir)
	paths := loc.Resolve(*contract, date)
	dayStartUS, dayEndUS := clock.UTCDay{}.DayBounds(date)

	tmpTradesOut := paths.TradesOut + fmt.Sprintf(".tmp-%d", os.Getpid())
	tmpDepthOut := paths.DepthOut + fmt.Sprintf(".tmp-%d", os.Getpid())
	registerPartialOutputs(tmpTradesOut, tmpDepthOut)
	defer clearPartialOutputs()

	tradesIn, err := os.Open(paths.TradesIn)
	if err != nil {
		log.Fatalf("[scsync] open trades input: %v", err)
	}
	defer tradesIn.Close()
	depthIn, err := os.Open(paths.DepthIn)
	if err != nil {
		log.Fatalf("[scsync] open depth input: %v", err)
	}
	defer depthIn.Close()

	mem := diag.NewMemorySink()
	sink := diag.NewMultiSink(mem, diag.NewLoggingSink(ctx, slogLogger))
	startedAt := time.Now()

	out, result, err := syncer.Run(syncer.Input{
		TradesReader: tradesIn,
		DepthReader:  depthIn,
		DayStartUS:   dayStartUS,
		DayEndUS:     dayEndUS,
	}, sink)
	result.Anomalies = mem.Snapshot()
	if err != nil {
		result.Status = syncer.Failed
		result.Reason = err.Error()
		log.Printf("[scsync] run failed: %v", err)
	} else {
		if err := writeOutputs(tmpTradesOut, tmpDepthOut, paths.TradesOut, paths.DepthOut, out); err != nil {
			result.Status = syncer.Failed
			result.Reason = fmt.Sprintf("write outputs: %v", err)
			removePartialOutputs()
		} else {
			clearPartialOutputs()
		}
	}

	prom.BucketsProcessed.Add(float64(result.BucketCount))
	prom.RecordsIn.WithLabelValues("trades").Add(float64(result.TradeIn))
	prom.RecordsIn.WithLabelValues("depth").Add(float64(result.DepthRecordIn))
	prom.RecordsOut.WithLabelValues("trades").Add(float64(result.TradeOut))
	prom.RecordsOut.WithLabelValues("depth").Add(float64(result.DepthRecordOut))
	prom.DepthBatchesTotal.Add(float64(result.DepthBatchCount))
	prom.ObserveAnomalies(result.Anomalies)
	prom.RunDuration.Observe(time.Since(startedAt).Seconds())
	prom.RunsTotal.WithLabelValues(result.Status.String()).Inc()

	var lastPrice float32
	if n := len(out.TradesRecords); n > 0 {
		lastPrice = out.TradesRecords[n-1].Close
	}

	var report verify.Report
	if result.Status != syncer.Failed {
		report = verify.Verify(out, result.TradeIn, result.DepthRecordIn)
		if !report.OK {
			result.Status = syncer.PartiallyComplete
			result.Reason = fmt.Sprintf("verification failures: %v", report.Failures)
		}
		if len(report.FlaggedMs) > 0 {
			slog.WarnContext(ctx, "net quantity mismatches flagged", append(logger.WithTrace(ctx), slog.Int("count", len(report.FlaggedMs)))...)
		}
	}

	finishedAt := time.Now()
	health.RecordRun(result.Status.String())

	if err := manifestStore.SaveRun(sqlite.Record{
		Contract: *contract, TradeDate: *dateStr, Result: result,
		ManifestHash: fmt.Sprintf("%x", report.ManifestHash),
		LastPrice:    lastPrice,
		StartedAt:    startedAt, FinishedAt: finishedAt,
	}); err != nil {
		log.Printf("[scsync] WARNING: failed to save manifest: %v", err)
	}

	if err := l.Put(*contract, *dateStr, ledger.Entry{
		Status: result.Status, ManifestHash: report.ManifestHash, FinishedAt: finishedAt,
		LastPrice: lastPrice,
	}); err != nil {
		log.Printf("[scsync] WARNING: failed to write ledger entry: %v", err)
	}

	hub.Broadcast(progress.Frame{
		Contract: *contract, TradeDate: *dateStr, State: syncer.Done.String(),
		BucketsDone: result.BucketCount, Anomalies: result.Anomalies,
	})
	publish(syncer.Done.String(), result.Status.String(), result.Reason)

	if alert, ok := notify.ForResult(*contract, *dateStr, result, cfg.AnomalyThreshold); ok {
		if err := notifier.Send(ctx, alert); err != nil {
			log.Printf("[scsync] WARNING: notification delivery failed: %v", err)
		}
	}

	log.Printf("[scsync] %s/%s finished: status=%s trade_in=%d trade_out=%d depth_in=%d depth_out=%d anomalies=%v",
		*contract, *dateStr, result.Status, result.TradeIn, result.TradeOut, result.DepthRecordIn, result.DepthRecordOut, result.Anomalies)

	switch result.Status {
	case syncer.Complete:
		os.Exit(0)
	case syncer.PartiallyComplete:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

// writeOutputs opens both outputs under their temporary names, writes the
// rewritten streams in full, and only then renames each into place — a
// reader watching tradesPath/depthPath never observes a partial file, and
// a crash mid-write leaves nothing but an orphaned .tmp-<pid> for cleanup
// to find.
func writeOutputs(tmpTradesPath, tmpDepthPath, tradesPath, depthPath string, out syncer.Output) error {
	tradesFile, err := os.OpenFile(tmpTradesPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create trades output: %w", err)
	}
	tradesEnc, err := trades.NewEncoder(tradesFile, out.TradesHeader)
	if err != nil {
		tradesFile.Close()
		return fmt.Errorf("trades encoder: %w", err)
	}
	for _, rec := range out.TradesRecords {
		if err := tradesEnc.WriteRecord(rec); err != nil {
			tradesFile.Close()
			return fmt.Errorf("write trade record: %w", err)
		}
	}
	if err := tradesFile.Close(); err != nil {
		return fmt.Errorf("close trades output: %w", err)
	}

	depthFile, err := os.OpenFile(tmpDepthPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create depth output: %w", err)
	}
	depthEnc, err := depth.NewEncoder(depthFile, out.DepthHeader)
	if err != nil {
		depthFile.Close()
		return fmt.Errorf("depth encoder: %w", err)
	}
	for _, batch := range out.DepthBatches {
		if err := depthEnc.WriteBatch(batch); err != nil {
			depthFile.Close()
			return fmt.Errorf("write depth batch: %w", err)
		}
	}
	if err := depthFile.Close(); err != nil {
		return fmt.Errorf("close depth output: %w", err)
	}

	if err := os.Rename(tmpTradesPath, tradesPath); err != nil {
		return fmt.Errorf("rename trades output: %w", err)
	}
	if err := os.Rename(tmpDepthPath, depthPath); err != nil {
		return fmt.Errorf("rename depth output: %w", err)
	}
	return nil
}

// partialOutputs tracks the current run's temporary output paths so the
// shutdown-signal handler can remove them before exiting; a SIGINT/SIGTERM
// mid-write must never leave a corrupt file at the final -SYNC path.
var (
	partialMu        sync.Mutex
	partialTradesTmp string
	partialDepthTmp  string
)

func registerPartialOutputs(tradesTmp, depthTmp string) {
	partialMu.Lock()
	defer partialMu.Unlock()
	partialTradesTmp, partialDepthTmp = tradesTmp, depthTmp
}

func clearPartialOutputs() {
	partialMu.Lock()
	defer partialMu.Unlock()
	partialTradesTmp, partialDepthTmp = "", ""
}

func removePartialOutputs() {
	partialMu.Lock()
	tradesTmp, depthTmp := partialTradesTmp, partialDepthTmp
	partialTradesTmp, partialDepthTmp = "", ""
	partialMu.Unlock()
	if tradesTmp != "" {
		os.Remove(tradesTmp)
	}
	if depthTmp != "" {
		os.Remove(depthTmp)
	}
}

func buildNotifier(cfg *config.Config) *notify.Chain {
	var notifiers []notify.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	notifiers = append(notifiers, notify.LogNotifier{})
	return notify.NewChain(notifiers...)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

