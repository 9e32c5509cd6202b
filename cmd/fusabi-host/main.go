// fusabi-host - demo host that loads Fusabi scripts from the project's
// script directories, executes them, and hot-reloads them on change.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi-host/cache"
	"github.com/fusabi-lang/fusabi-host/manifest"
	"github.com/fusabi-lang/fusabi-host/pipeline"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("fusabi.host")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	projectDir := flag.String("C", ".", "Project directory (fusabi.toml is searched upward from here)")
	once := flag.Bool("once", false, "Run discovered scripts once and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fusabi-host [options]\n\n")
		fmt.Fprintf(os.Stderr, "Watches the script directories from fusabi.toml, executes every\n")
		fmt.Fprintf(os.Stderr, "discovered script, and re-executes scripts when their files change.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fusabi-host                # Watch ./scripts and hot-reload\n")
		fmt.Fprintf(os.Stderr, "  fusabi-host -C demo -once  # Run demo/scripts once\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(*projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		if m, err = manifest.Default(*projectDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := pipeline.Config{
		Engines:     m.Reload.Engines,
		RetryOnTrap: m.Reload.RetryOnTrap,
	}
	if m.Cache.Enabled {
		cc, err := cache.Open(m.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: compile cache disabled: %v\n", err)
		} else {
			defer cc.Close()
			cfg.Cache = cc
		}
	}

	pipe := pipeline.New(cfg)
	w := newWatcher(pipe, m.ScriptDirPaths())

	tick := func() int {
		w.poll()
		outcomes, diags := pipe.Tick()
		failures := 0
		for _, d := range diags {
			failures++
			fmt.Fprintf(os.Stderr, "reload %s (%s): %v\n", d.ID, d.Event, d.Err)
		}
		for _, o := range outcomes {
			if o.Err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "%s: %s: %v\n", o.Owner, o.State, o.Err)
			} else if *verbose {
				fmt.Printf("%s: %s\n", o.Owner, o.State)
			}
		}
		return failures
	}

	if *once {
		if failures := tick(); failures > 0 {
			os.Exit(1)
		}
		return
	}

	log.Infof("watching %v every %dms", m.ScriptDirPaths(), m.Reload.PollMillis)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(time.Duration(m.Reload.PollMillis) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-interrupt:
			log.Infof("shutting down")
			return
		}
	}
}
