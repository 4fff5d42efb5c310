package main

import (
	"flag"
	"io"
	"os"

	"github.com/jobala/kasha/buffer"
	"github.com/jobala/kasha/config"
	"github.com/jobala/kasha/recovery"
	"github.com/jobala/kasha/storage/disk"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logrus.WithError(err).Fatal("failed loading config")
		}
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}
	logrus.SetLevel(level)

	file, err := os.OpenFile(cfg.DbFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		logrus.WithError(err).Fatal("failed opening db file")
	}
	defer file.Close()

	diskMgr := disk.NewManager(file)
	scheduler := disk.NewScheduler(diskMgr)
	replacer := buffer.NewClockReplacer(cfg.PoolSize)
	logMgr := recovery.NewLogManager(io.Discard)
	pool := buffer.NewBufferpoolManager(cfg.PoolSize, replacer, diskMgr, logMgr)

	page, err := pool.NewPage()
	if err != nil {
		logrus.WithError(err).Fatal("failed allocating a page")
	}
	pageId := page.Id()
	copy(page.Data(), []byte("hello from kasha"))
	pool.UnpinPage(pageId, true)

	logrus.WithField("pageId", pageId).Info("wrote a page through the pool")

	fetched, err := pool.FetchPage(pageId)
	if err != nil {
		logrus.WithError(err).Fatal("failed fetching the page back")
	}
	logrus.WithFields(logrus.Fields{
		"pageId": fetched.Id(),
		"pins":   fetched.PinCount(),
	}).Info("fetched the page back")
	pool.UnpinPage(pageId, false)

	// background write through the scheduler
	data := make([]byte, disk.PAGE_SIZE)
	copy(data, []byte("scheduled write"))
	resp := <-scheduler.Schedule(disk.NewRequest(diskMgr.AllocatePage(), data, true))
	logrus.WithField("success", resp.Success).Info("scheduled write finished")

	if err := pool.Close(); err != nil {
		logrus.WithError(err).Fatal("failed flushing the pool")
	}
}
