package attendance_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	attendanceDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var (
		repo     *mockRepository
		staff    *mockProfiles
		service  *attendance.Service
		ctx      context.Context
		today    calendar.Day
		storeErr error
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		staff = &mockProfiles{profiles: profiles(3)}
		service = attendance.NewService(repo, staff, testRules(), quietLogger)
		today = "2024-01-15"
		storeErr = errors.New("connection reset by peer")
	})

	Describe("CheckIn", func() {
		It("should record an on-time check-in as present", func() {
			rec, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 30))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(attendance.StatusPresent))
			Expect(rec.Date).To(Equal(today))
			Expect(rec.TotalHours).To(BeZero())
			Expect(repo.count()).To(Equal(1))
		})

		It("should record a check-in after the cutoff hour as late", func() {
			rec, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 10, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(attendance.StatusLate))
		})

		It("should reject a second check-in on the same day without a new record", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CheckIn(ctx, "user-1", at("2024-01-15", 13, 0))
			Expect(err).To(MatchError(attendance.ErrAlreadyCheckedIn))
			Expect(repo.count()).To(Equal(1))
		})

		It("should allow a check-in on the next day", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CheckIn(ctx, "user-1", at("2024-01-16", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.count()).To(Equal(2))
		})

		It("should let exactly one of many concurrent check-ins win", func() {
			var wg sync.WaitGroup
			results := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			var wins, losses int
			for err := range results {
				if err == nil {
					wins++
				} else {
					Expect(err).To(MatchError(attendance.ErrAlreadyCheckedIn))
					losses++
				}
			}
			Expect(wins).To(Equal(1))
			Expect(losses).To(Equal(9))
			Expect(repo.count()).To(Equal(1))
		})

		It("should map a unique violation on insert to already checked in", func() {
			repo.insertErr = attendance.ErrDuplicateRecord
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).To(MatchError(attendance.ErrAlreadyCheckedIn))
		})

		It("should report store failures as unavailable and write nothing", func() {
			repo.insertErr = storeErr
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).To(MatchError(attendance.ErrStoreUnavailable))
			Expect(repo.count()).To(BeZero())

			repo.insertErr = nil
			repo.getErr = storeErr
			_, err = service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).To(MatchError(attendance.ErrStoreUnavailable))
			Expect(repo.count()).To(BeZero())
		})
	})

	Describe("CheckOut", func() {
		It("should close a full day as present with 9 hours", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 30))
			Expect(err).NotTo(HaveOccurred())

			rec, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 30))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(attendance.StatusPresent))
			Expect(rec.TotalHours).To(Equal(9.0))
			Expect(rec.CheckOutTime).NotTo(BeNil())
		})

		It("should turn a short session into a half day", func() {
			in, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 9, 15))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.Status).To(Equal(attendance.StatusPresent))

			rec, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 12, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(attendance.StatusHalfDay))
			Expect(rec.TotalHours).To(Equal(2.75))
		})

		It("should keep late for a late arrival who works a full session", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 10, 30))
			Expect(err).NotTo(HaveOccurred())

			rec, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 18, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(attendance.StatusLate))
			Expect(rec.TotalHours).To(Equal(7.5))
		})

		It("should require a check-in first", func() {
			_, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 0))
			Expect(err).To(MatchError(attendance.ErrNoActiveCheckIn))
		})

		It("should refuse to close a record without a check-in", func() {
			repo.seed("user-1", today, attendance.StatusAbsent, 0)
			_, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 0))
			Expect(err).To(MatchError(attendance.ErrNoActiveCheckIn))
		})

		It("should not recompute hours on a second check-out", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			first, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 16, 0))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CheckOut(ctx, "user-1", at("2024-01-15", 20, 0))
			Expect(err).To(MatchError(attendance.ErrNoActiveCheckIn))

			status, err := service.ClassifyToday(ctx, "user-1", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.TotalHours).To(Equal(first.TotalHours))
		})

		It("should map a lost conditional update to no active check-in", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			repo.closeErr = attendance.ErrSessionClosed

			_, err = service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 0))
			Expect(err).To(MatchError(attendance.ErrNoActiveCheckIn))
		})

		It("should report a vanished record as not found", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			repo.closeErr = attendance.ErrNotFound

			_, err = service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 0))
			Expect(err).To(MatchError(attendance.ErrNotFound))
		})

		It("should reject a check-out before the check-in", func() {
			row := repo.seed("user-1", today, attendance.StatusPresent, 0)
			Expect(row.CheckInTime).NotTo(BeNil())

			_, err := service.CheckOut(ctx, "user-1", at("2024-01-15", 7, 0))
			Expect(err).To(MatchError(attendance.ErrInvalidCheckOut))
		})

		It("should leave the record open when the store fails", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			repo.closeErr = storeErr

			_, err = service.CheckOut(ctx, "user-1", at("2024-01-15", 17, 0))
			Expect(err).To(MatchError(attendance.ErrStoreUnavailable))

			status, err := service.ClassifyToday(ctx, "user-1", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.CheckOutTime).To(BeNil())
		})
	})

	Describe("ClassifyToday", func() {
		It("should be not-marked without a record", func() {
			status, err := service.ClassifyToday(ctx, "user-1", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(attendance.StatusNotMarked))
			Expect(status.CheckInTime).To(BeNil())
		})

		It("should return the stored status", func() {
			_, err := service.CheckIn(ctx, "user-1", at("2024-01-15", 11, 0))
			Expect(err).NotTo(HaveOccurred())

			status, err := service.ClassifyToday(ctx, "user-1", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(attendance.StatusLate))
			Expect(status.CheckInTime).NotTo(BeNil())
		})
	})

	Describe("MonthlySummary", func() {
		It("should summarize only the requested month", func() {
			repo.seed("user-1", "2024-01-02", attendance.StatusPresent, 8)
			repo.seed("user-1", "2024-01-03", attendance.StatusLate, 6)
			repo.seed("user-1", "2023-12-29", attendance.StatusPresent, 8)
			repo.seed("user-2", "2024-01-02", attendance.StatusPresent, 8)

			summary, err := service.MonthlySummary(ctx, "user-1", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Month).To(Equal("2024-01"))
			Expect(summary.MonthStart).To(Equal(calendar.Day("2024-01-01")))
			Expect(summary.MonthEnd).To(Equal(calendar.Day("2024-02-01")))
			Expect(summary.Present).To(Equal(1))
			Expect(summary.Late).To(Equal(1))
			Expect(summary.TotalHours).To(Equal(14.0))
		})

		It("should surface store failures", func() {
			repo.listErr = storeErr
			_, err := service.MonthlySummary(ctx, "user-1", today)
			Expect(err).To(MatchError(attendance.ErrStoreUnavailable))
		})
	})

	Describe("History", func() {
		It("should return the newest records first up to the limit", func() {
			for i := 0; i < 10; i++ {
				repo.seed("user-1", calendar.Day("2024-01-01").AddDays(i), attendance.StatusPresent, 8)
			}

			records, err := service.History(ctx, "user-1", 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(7))
			Expect(records[0].Date).To(Equal(calendar.Day("2024-01-10")))

			all, err := service.History(ctx, "user-1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(10))
		})

		It("should reject an out of range limit", func() {
			_, err := service.History(ctx, "user-1", 1000)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("manager views", func() {
		It("should summarize the org day", func() {
			repo.seed("user-0", today, attendance.StatusPresent, 0)
			repo.seed("user-1", today, attendance.StatusLate, 0)

			summary, err := service.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TotalEmployees).To(Equal(3))
			Expect(summary.PresentCount).To(Equal(2))
			Expect(summary.AbsentCount).To(Equal(1))
			Expect(summary.LateArrivals).To(HaveLen(1))
			Expect(summary.LateArrivals[0].Profile.Name).To(Equal("Employee 1"))
		})

		It("should fail the org day when profiles cannot be loaded", func() {
			staff.err = storeErr
			_, err := service.OrgDay(ctx, today)
			Expect(err).To(MatchError(attendance.ErrStoreUnavailable))
		})

		It("should log a profile failure like any other store failure", func() {
			var logs bytes.Buffer
			logged := attendance.NewService(repo, staff, testRules(), slog.New(slog.NewTextHandler(&logs, nil)))
			staff.err = storeErr

			_, err := logged.OrgDay(ctx, today)
			Expect(err).To(HaveOccurred())
			Expect(logs.String()).To(ContainSubstring("failed to list profiles for org day"))
			Expect(logs.String()).To(ContainSubstring("connection reset by peer"))
		})

		It("should build a seven day trend", func() {
			repo.seed("user-0", today, attendance.StatusPresent, 8)
			repo.seed("user-0", "2024-01-08", attendance.StatusPresent, 8)

			points, err := service.Trend(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(7))
			Expect(points[0].Date).To(Equal(calendar.Day("2024-01-09")))
			Expect(points[6].Present).To(Equal(1))
		})

		It("should list and filter attendance with profiles", func() {
			repo.seed("user-0", today, attendance.StatusPresent, 8)
			repo.seed("user-1", today, attendance.StatusLate, 8)

			rows, err := service.ListAttendance(ctx, attendance.ListFilter{Status: "late"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].UserID).To(Equal("user-1"))
		})

		It("should reject an unknown status filter", func() {
			_, err := service.ListAttendance(ctx, attendance.ListFilter{Status: "vacation"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("caching and events", func() {
		var (
			cache *memoryCache
			bus   *events.EventBus
		)

		BeforeEach(func() {
			cache = newMemoryCache()
			service.UseCache(cache)

			bus = events.NewEventBus(quietLogger)
			service.UsePublisher(bus)
			attendance.NewEventHandler(service, quietLogger).RegisterEventHandlers(bus)
		})

		It("should serve the org day from cache until a check-in invalidates it", func() {
			first, err := service.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.PresentCount).To(BeZero())
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeTrue())

			repo.seed("user-2", today, attendance.StatusPresent, 0)
			cached, err := service.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached.PresentCount).To(BeZero())

			_, err = service.CheckIn(ctx, "user-0", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeFalse())

			fresh, err := service.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.PresentCount).To(Equal(2))
		})

		It("should invalidate every trend that includes the changed day", func() {
			for _, d := range []calendar.Day{"2024-01-15", "2024-01-18", "2024-01-21", "2024-01-22"} {
				_, err := service.Trend(ctx, d)
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := service.CheckIn(ctx, "user-0", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())

			Expect(cache.has("attendance:trend:2024-01-15")).To(BeFalse())
			Expect(cache.has("attendance:trend:2024-01-18")).To(BeFalse())
			Expect(cache.has("attendance:trend:2024-01-21")).To(BeFalse())
			Expect(cache.has("attendance:trend:2024-01-22")).To(BeTrue())
		})

		It("should invalidate on check-out too", func() {
			_, err := service.CheckIn(ctx, "user-0", at("2024-01-15", 8, 0))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CheckOut(ctx, "user-0", at("2024-01-15", 10, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeFalse())
		})

		It("should drop an org day that was computed before a check-in landed", func() {
			hooked := &hookedRepository{mockRepository: repo}
			racing := attendance.NewService(hooked, staff, testRules(), quietLogger)
			racing.UseCache(cache)

			hooked.afterRead = func() {
				repo.seed("user-0", today, attendance.StatusPresent, 0)
				Expect(racing.InvalidateDay(ctx, today)).To(Succeed())
			}
			stale, err := racing.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(stale.PresentCount).To(BeZero())
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeFalse())

			hooked.afterRead = nil
			fresh, err := racing.OrgDay(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.PresentCount).To(Equal(1))
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeTrue())
		})

		It("should drop a trend that was computed before a check-in landed", func() {
			hooked := &hookedRepository{mockRepository: repo}
			racing := attendance.NewService(hooked, staff, testRules(), quietLogger)
			racing.UseCache(cache)

			hooked.afterRead = func() {
				Expect(racing.InvalidateDay(ctx, today)).To(Succeed())
			}
			_, err := racing.Trend(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.has("attendance:trend:2024-01-15")).To(BeFalse())
		})

		It("should drop every cached org day when a profile is created", func() {
			for _, d := range []calendar.Day{"2024-01-12", "2024-01-15"} {
				_, err := service.OrgDay(ctx, d)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := service.Trend(ctx, today)
			Expect(err).NotTo(HaveOccurred())

			Expect(bus.PublishSync(ctx, events.NewProfileCreatedEvent("user-9", "EMP009", "employee"))).To(Succeed())

			Expect(cache.has("attendance:orgday:2024-01-12")).To(BeFalse())
			Expect(cache.has("attendance:orgday:2024-01-15")).To(BeFalse())
			Expect(cache.has("attendance:trend:2024-01-15")).To(BeTrue())
		})
	})
})

// hookedRepository runs afterRead between a list query and its return, the
// window in which a concurrent write can land.
type hookedRepository struct {
	*mockRepository
	afterRead func()
}

func (h *hookedRepository) ListByDate(ctx context.Context, date calendar.Day) ([]*attendanceDatamodel.Attendance, error) {
	rows, err := h.mockRepository.ListByDate(ctx, date)
	if h.afterRead != nil {
		h.afterRead()
	}
	return rows, err
}

func (h *hookedRepository) ListByDateRange(ctx context.Context, from, to calendar.Day) ([]*attendanceDatamodel.Attendance, error) {
	rows, err := h.mockRepository.ListByDateRange(ctx, from, to)
	if h.afterRead != nil {
		h.afterRead()
	}
	return rows, err
}
