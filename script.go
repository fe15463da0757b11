package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/howeyc/fsnotify"
)

// watchScript plays the hex command script through the controller and
// re-runs it, after a warm reset, whenever the file changes.
func watchScript(r *runner, file string) error {
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}

	started := false
	run := time.After(1 * time.Millisecond)
	for {
		select {
		case <-run:
			if started {
				log.Printf("script: reset")
				r.Reset(false)
			}
			log.Printf("script: run %s", filepath.Base(file))
			if err := playScript(r, file); err != nil {
				log.Printf("script: %v", err)
				break
			}
			started = true
		case ev := <-watcher.Event:
			if ev.Name == file && !ev.IsAttrib() {
				run = time.After(100 * time.Millisecond)
			}
		case err := <-watcher.Error:
			log.Printf("script: watcher: %v", err)
		}
	}
}

// playScript feeds one script file to the controller. Each line is
// either whitespace-separated hex command bytes, or a directive:
//
//	# comment
//	wait <ms>       pause, letting report cycles run
//	key <code> ...  key press/release events (high bit set = release)
func playScript(r *runner, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "wait":
			if len(fields) != 2 {
				return fmt.Errorf("line %d: wait needs a duration", i+1)
			}
			ms, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("line %d: wait %q: %v", i+1, fields[1], err)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "key":
			for _, f := range fields[1:] {
				code, err := strconv.ParseUint(f, 16, 8)
				if err != nil {
					return fmt.Errorf("line %d: key %q: %v", i+1, f, err)
				}
				r.Key(byte(code))
			}
		default:
			for _, f := range fields {
				b, err := strconv.ParseUint(f, 16, 8)
				if err != nil {
					return fmt.Errorf("line %d: %q: %v", i+1, f, err)
				}
				r.Submit(byte(b))
			}
		}
	}
	return nil
}
