package internal_test

import (
	"time"

	"github.com/frahmantamala/employee-attendance/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() internal.Config {
	return internal.Config{
		Server: internal.ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			Source:       "postgres://localhost/attendance",
		},
		Identity: internal.IdentityConfig{
			JWTSecret: "0123456789abcdef0123456789abcdef",
		},
		Attendance: internal.AttendanceConfig{
			LateCutoffHour:   9,
			HalfDayThreshold: 4 * time.Hour,
			TimeZone:         "UTC",
		},
		Observability: internal.ObservabilityConfig{
			Logging: internal.LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

var _ = Describe("Config", func() {
	It("should accept a complete config", func() {
		cfg := validConfig()
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should report struct tag failures by namespace", func() {
		cfg := validConfig()
		cfg.Identity.JWTSecret = "short"
		cfg.Observability.Logging.Level = "trace"

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Config.Identity.JWTSecret failed on min"))
		Expect(err.Error()).To(ContainSubstring("Config.Observability.Logging.Level failed on oneof"))
	})

	It("should reject idle connections above open connections", func() {
		cfg := validConfig()
		cfg.Database.MaxIdleConns = 20

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("max_idle_conns cannot be greater than max_open_conns"))
	})

	It("should reject a read timeout below the header timeout", func() {
		cfg := validConfig()
		cfg.Server.ReadTimeout = time.Second

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("read_timeout must be >= read_header_timeout")))
	})

	It("should reject unknown time zones", func() {
		cfg := validConfig()
		cfg.Attendance.TimeZone = "Mars/Olympus"

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid time_zone")))
	})

	It("should reject a cutoff hour outside the day", func() {
		cfg := validConfig()
		cfg.Attendance.LateCutoffHour = 24

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("LateCutoffHour failed on max")))
	})

	Describe("Origins", func() {
		It("should split and trim entries", func() {
			s := internal.ServerConfig{AllowedOrigins: " http://a.test, ,http://b.test "}
			Expect(s.Origins()).To(Equal([]string{"http://a.test", "http://b.test"}))
		})

		It("should be empty when unset", func() {
			Expect((&internal.ServerConfig{}).Origins()).To(BeNil())
		})
	})

	Describe("Location", func() {
		It("should treat Local and empty as the host zone", func() {
			for _, tz := range []string{"", "Local", "local"} {
				c := internal.AttendanceConfig{TimeZone: tz}
				loc, err := c.Location()
				Expect(err).NotTo(HaveOccurred())
				Expect(loc).To(Equal(time.Local))
			}
		})

		It("should load named zones", func() {
			c := internal.AttendanceConfig{TimeZone: "UTC"}
			loc, err := c.Location()
			Expect(err).NotTo(HaveOccurred())
			Expect(loc.String()).To(Equal("UTC"))
		})
	})

	It("should enable redis only with an address", func() {
		Expect((&internal.RedisConfig{}).Enabled()).To(BeFalse())
		Expect((&internal.RedisConfig{Addr: "localhost:6379"}).Enabled()).To(BeTrue())
	})

	It("should provide defaults for every tuned key", func() {
		d := internal.Defaults()
		Expect(d).To(HaveKeyWithValue("attendance.late_cutoff_hour", 9))
		Expect(d).To(HaveKeyWithValue("attendance.half_day_threshold", "4h"))
		Expect(d).To(HaveKey("http_server.port"))
	})
})
