package attendance_test

import (
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Rules", func() {
	var rules attendance.Rules

	BeforeEach(func() {
		rules = testRules()
	})

	It("should default to a 9 o'clock cutoff and a 4 hour half day", func() {
		defaults := attendance.DefaultRules()
		Expect(defaults.LateCutoffHour).To(Equal(9))
		Expect(defaults.HalfDayThreshold).To(Equal(4 * time.Hour))
	})

	Describe("CheckInStatus", func() {
		It("should be present for every hour up to and including the cutoff hour", func() {
			for hour := 0; hour <= 9; hour++ {
				for _, minute := range []int{0, 30, 59} {
					Expect(rules.CheckInStatus(at("2024-01-15", hour, minute))).To(Equal(attendance.StatusPresent),
						"hour %d minute %d", hour, minute)
				}
			}
		})

		It("should be late for every hour after the cutoff hour", func() {
			for hour := 10; hour <= 23; hour++ {
				Expect(rules.CheckInStatus(at("2024-01-15", hour, 0))).To(Equal(attendance.StatusLate), "hour %d", hour)
			}
		})

		It("should judge the hour in the business location", func() {
			// 02:30 UTC is 09:30 in WIB
			Expect(rules.CheckInStatus(time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC))).To(Equal(attendance.StatusPresent))
			// 03:00 UTC is 10:00 in WIB
			Expect(rules.CheckInStatus(time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC))).To(Equal(attendance.StatusLate))
		})

		It("should honour a configured cutoff", func() {
			rules.LateCutoffHour = 8
			Expect(rules.CheckInStatus(at("2024-01-15", 9, 0))).To(Equal(attendance.StatusLate))
		})
	})

	Describe("CheckOutStatus", func() {
		It("should make every short session a half day", func() {
			for _, status := range []attendance.Status{attendance.StatusPresent, attendance.StatusLate} {
				for _, hours := range []float64{0, 1, 2.75, 3.99} {
					Expect(rules.CheckOutStatus(status, hours)).To(Equal(attendance.StatusHalfDay))
				}
			}
		})

		It("should keep the check-in status for sessions of at least the threshold", func() {
			for _, status := range []attendance.Status{attendance.StatusPresent, attendance.StatusLate} {
				for _, hours := range []float64{4, 4.01, 9, 14} {
					Expect(rules.CheckOutStatus(status, hours)).To(Equal(status))
				}
			}
		})
	})

	It("should compute untruncated elapsed hours", func() {
		Expect(attendance.ElapsedHours(at("2024-01-15", 9, 15), at("2024-01-15", 12, 0))).To(Equal(2.75))
		Expect(attendance.ElapsedHours(at("2024-01-15", 8, 30), at("2024-01-15", 17, 30))).To(Equal(9.0))
	})

	It("should date a check-in by the business day", func() {
		// 20:00 UTC on the 15th is already the 16th in WIB
		rec := attendance.NewCheckIn("user-1", time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC), rules)
		Expect(rec.Date).To(Equal(calendar.Day("2024-01-16")))
		Expect(rec.TotalHours).To(BeZero())
		Expect(rec.CheckOutTime).To(BeNil())
		Expect(rec.IsOpen()).To(BeTrue())
		Expect(rec.ID).NotTo(BeEmpty())
	})

	It("should only store real statuses", func() {
		Expect(attendance.StatusHalfDay.Valid()).To(BeTrue())
		Expect(attendance.StatusNotMarked.Valid()).To(BeFalse())
		Expect(attendance.StatusLate.Attended()).To(BeTrue())
		Expect(attendance.StatusHalfDay.Attended()).To(BeFalse())
	})
})
