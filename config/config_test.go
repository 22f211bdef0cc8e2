package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"keepalive/config"
)

var _ = Describe("LoadConfig", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Context("without a config file", func() {
		It("should fall back to defaults", func() {
			cfg, err := config.LoadConfig(filepath.Join(tempDir, "missing.yaml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Registry.Driver).To(Equal("memory"))
			Expect(cfg.Registry.MaxURLsPerUser).To(Equal(3))
			Expect(cfg.Registry.AllowedDomains).To(ConsistOf("onrender.com", "vercel.app", "cyclic.app"))
			Expect(cfg.Scheduler.BaseInterval).To(Equal(10 * time.Minute))
			Expect(cfg.Probe.Timeout).To(Equal(10 * time.Second))
			Expect(cfg.Status.HistorySize).To(Equal(10))
		})
	})

	Context("with a valid config file", func() {
		It("should parse nested sections and durations", func() {
			path := writeConfig(`
env: production
port: 9090
auth:
  provider: jwt
  secret: "0123456789abcdef0123"
scheduler:
  base_interval: 5m
  retry_interval: 10s
  max_backoff: 2m
  workers: 4
registry:
  allowed_domains: ["onrender.com"]
`)
			cfg, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.IsProduction()).To(BeTrue())
			Expect(cfg.Port).To(Equal(9090))
			Expect(cfg.Auth.Provider).To(Equal("jwt"))
			Expect(cfg.Scheduler.BaseInterval).To(Equal(5 * time.Minute))
			Expect(cfg.Scheduler.RetryInterval).To(Equal(10 * time.Second))
			Expect(cfg.Scheduler.Workers).To(Equal(4))
			Expect(cfg.Registry.AllowedDomains).To(Equal([]string{"onrender.com"}))
		})
	})

	Context("with invalid settings", func() {
		It("should reject an unknown registry driver", func() {
			path := writeConfig("registry:\n  driver: etcd\n")
			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("Driver")))
		})

		It("should require a database url for the postgres driver", func() {
			path := writeConfig("registry:\n  driver: postgres\n")
			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("db.url is required")))
		})

		It("should require a long enough secret for jwt auth", func() {
			path := writeConfig("auth:\n  provider: jwt\n  secret: short\n")
			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("auth.secret")))
		})

		It("should reject a backoff cap above the base interval", func() {
			path := writeConfig("scheduler:\n  base_interval: 1m\n  max_backoff: 2m\n")
			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("max_backoff")))
		})
	})

	Context("with environment overrides", func() {
		AfterEach(func() {
			os.Unsetenv("SCHEDULER_WORKERS")
		})

		It("should prefer env over defaults", func() {
			os.Setenv("SCHEDULER_WORKERS", "7")
			cfg, err := config.LoadConfig(filepath.Join(tempDir, "missing.yaml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Scheduler.Workers).To(Equal(7))
		})
	})
})
