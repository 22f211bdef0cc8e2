package logger_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/pkg/logger"
)

var _ = Describe("Init", func() {
	AfterEach(func() {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	It("should default to debug outside production", func() {
		logger.Init(&config.Config{Env: config.EnvDevelopment, ServiceName: "svc"})
		Expect(zerolog.GlobalLevel()).To(Equal(zerolog.DebugLevel))
	})

	It("should default to info in production", func() {
		logger.Init(&config.Config{Env: config.EnvProduction, ServiceName: "svc"})
		Expect(zerolog.GlobalLevel()).To(Equal(zerolog.InfoLevel))
	})

	It("should honour an explicit level", func() {
		cfg := &config.Config{Env: config.EnvProduction}
		cfg.Log.Level = "warn"
		logger.Init(cfg)
		Expect(zerolog.GlobalLevel()).To(Equal(zerolog.WarnLevel))
	})

	It("should write JSON lines to the configured file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "keepalive.log")
		cfg := &config.Config{Env: config.EnvProduction, ServiceName: "svc"}
		cfg.Log = config.LogConfig{File: path, MaxSizeMB: 1}

		log := logger.Init(cfg)
		log.Info().Str("url", "https://a.onrender.com").Msg("probe ok")

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"message":"probe ok"`))
		Expect(string(data)).To(ContainSubstring(`"service":"svc"`))
	})
})
