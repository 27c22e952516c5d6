// Command hellfirekerneld boots the kernel core and pumps its tick
// clock, standing in for the hardware-init-through-first-dispatch
// sequence that would run on real silicon. It loads config.yml (or
// defaults), optionally serves Prometheus metrics, and logs the
// kernel's event stream to the console until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hellfirekernel/internal/job"
	"hellfirekernel/internal/kconfig"
	"hellfirekernel/internal/kernel"
	"hellfirekernel/internal/kmetrics"
)

// appMain spawns the best-effort demo workload once the kernel's
// standing tasks (idle, polling server, aperiodic generator) are up.
// deferredStartup sleeps briefly, exercising job.Sleep's resumption
// across preemption, then finishes for good -- a one-shot task
// modeling work that needs to happen once, shortly after boot, rather
// than on every tick.
func appMain(k *kernel.Kernel) {
	if _, err := k.Spawn(job.Sleep(750*time.Millisecond), 0, 0, 0, 1, "deferred startup", 64); err != nil {
		log.Printf("hellfirekernel: spawn deferred startup task: %v", err)
	}
}

func main() {
	configPath := flag.String("config", "config.yml", "path to kernel config YAML")
	csvPath := flag.String("csv", "", "optional path to write a kernel event CSV trace")
	flag.Parse()

	cfg := kconfig.Load(*configPath)
	fmt.Printf("hellfirekernel: loaded config: %+v\n", cfg)

	k, err := kernel.New(cfg)
	if err != nil {
		log.Fatalf("hellfirekernel: new kernel: %v", err)
	}

	if cfg.MetricsAddr != "" {
		m := kmetrics.New()
		k.SetMetrics(m)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("hellfirekernel: metrics server stopped: %v", err)
			}
		}()
		fmt.Printf("hellfirekernel: metrics on %s/metrics\n", cfg.MetricsAddr)
	}

	if *csvPath != "" {
		if err := k.EnableCSVTrace(*csvPath); err != nil {
			log.Fatalf("hellfirekernel: csv trace: %v", err)
		}
	}

	go kernel.LogEvents(k.Events())

	if err := k.Boot(appMain); err != nil {
		log.Fatalf("hellfirekernel: boot: %v", err)
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	k.Run(stop)
}
