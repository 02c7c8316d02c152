package attendance_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	attendancePostgres "github.com/frahmantamala/employee-attendance/internal/attendance/postgres"
	"github.com/frahmantamala/employee-attendance/internal/auth"
	attendanceDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/attendance"
	profileDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/frahmantamala/employee-attendance/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Attendance Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *attendance.Handler
		now     time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logger.Silent),
			TranslateError:                           true,
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&profileDatamodel.Profile{}, &attendanceDatamodel.Attendance{})).To(Succeed())

		staff := []*profile.Profile{
			{ID: "user-1", EmployeeID: "EMP001", Name: "Ayu", Department: "Engineering"},
			{ID: "user-2", EmployeeID: "EMP002", Name: "Budi", Department: "Finance"},
		}
		for _, p := range staff {
			Expect(db.Create(profile.ToDataModel(p)).Error).NotTo(HaveOccurred())
		}

		repo := attendancePostgres.NewAttendanceRepository(db)
		service := attendance.NewService(repo, &mockProfiles{profiles: staff}, testRules(), quietLogger)

		now = at("2024-01-15", 8, 30)
		handler = attendance.NewHandler(service, time.Second)
		handler.BaseHandler = &transport.BaseHandler{Logger: quietLogger}
		handler.Now = func() time.Time { return now }
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	as := func(req *http.Request, userID, role string) *http.Request {
		return req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: userID, Role: role}))
	}

	serve := func(h http.HandlerFunc, method, target, userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if userID != "" {
			req = as(req, userID, auth.RoleEmployee)
		}
		w := httptest.NewRecorder()
		h(w, req)
		return w
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		code, _ := body["error"]["code"].(string)
		return code
	}

	It("should check in and out through the day", func() {
		w := serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")
		Expect(w.Code).To(Equal(http.StatusCreated))

		var rec attendance.Record
		Expect(json.NewDecoder(w.Body).Decode(&rec)).To(Succeed())
		Expect(rec.Status).To(Equal(attendance.StatusPresent))
		Expect(rec.Date.String()).To(Equal("2024-01-15"))

		now = at("2024-01-15", 17, 30)
		w = serve(handler.CheckOut, http.MethodPost, "/attendance/check-out", "user-1")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(w.Body).Decode(&rec)).To(Succeed())
		Expect(rec.Status).To(Equal(attendance.StatusPresent))
		Expect(rec.TotalHours).To(Equal(9.0))

		w = serve(handler.GetToday, http.MethodGet, "/attendance/today", "user-1")
		Expect(w.Code).To(Equal(http.StatusOK))
		var today attendance.TodayStatus
		Expect(json.NewDecoder(w.Body).Decode(&today)).To(Succeed())
		Expect(today.Status).To(Equal(attendance.StatusPresent))
		Expect(today.TotalHours).To(Equal(9.0))
	})

	It("should return 409 for a second check-in", func() {
		Expect(serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1").Code).To(Equal(http.StatusCreated))

		w := serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(w)).To(Equal("ALREADY_CHECKED_IN"))
	})

	It("should ask for a check-in before a check-out", func() {
		w := serve(handler.CheckOut, http.MethodPost, "/attendance/check-out", "user-1")
		Expect(w.Code).To(Equal(http.StatusConflict))

		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["error"]["code"]).To(Equal("NO_ACTIVE_CHECK_IN"))
		Expect(body["error"]["message"]).To(Equal("Please check in first"))
	})

	It("should reject a second check-out", func() {
		serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")
		now = at("2024-01-15", 12, 0)
		Expect(serve(handler.CheckOut, http.MethodPost, "/attendance/check-out", "user-1").Code).To(Equal(http.StatusOK))

		now = at("2024-01-15", 18, 0)
		w := serve(handler.CheckOut, http.MethodPost, "/attendance/check-out", "user-1")
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("should report not-marked before any check-in", func() {
		w := serve(handler.GetToday, http.MethodGet, "/attendance/today", "user-1")
		var today attendance.TodayStatus
		Expect(json.NewDecoder(w.Body).Decode(&today)).To(Succeed())
		Expect(today.Status).To(Equal(attendance.StatusNotMarked))
	})

	It("should require a user", func() {
		w := serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should summarize a requested month and validate the parameter", func() {
		serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")

		w := serve(handler.GetMonthlySummary, http.MethodGet, "/attendance/summary?month=2024-01", "user-1")
		Expect(w.Code).To(Equal(http.StatusOK))
		var summary attendance.MonthlySummaryResponse
		Expect(json.NewDecoder(w.Body).Decode(&summary)).To(Succeed())
		Expect(summary.Present).To(Equal(1))

		w = serve(handler.GetMonthlySummary, http.MethodGet, "/attendance/summary?month=2024-13", "user-1")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return history with a limit", func() {
		serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")
		now = at("2024-01-16", 8, 0)
		serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")

		w := serve(handler.GetHistory, http.MethodGet, "/attendance/history?limit=1", "user-1")
		Expect(w.Code).To(Equal(http.StatusOK))
		var history attendance.HistoryResponse
		Expect(json.NewDecoder(w.Body).Decode(&history)).To(Succeed())
		Expect(history.Records).To(HaveLen(1))
		Expect(history.Records[0].Date.String()).To(Equal("2024-01-16"))

		w = serve(handler.GetHistory, http.MethodGet, "/attendance/history?limit=abc", "user-1")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	Describe("manager endpoints", func() {
		BeforeEach(func() {
			serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-1")
			now = at("2024-01-15", 10, 15)
			serve(handler.CheckIn, http.MethodPost, "/attendance/check-in", "user-2")
		})

		It("should return the dashboard", func() {
			w := serve(handler.GetDashboard, http.MethodGet, "/manager/dashboard", "user-1")
			Expect(w.Code).To(Equal(http.StatusOK))

			var summary attendance.OrgDaySummary
			Expect(json.NewDecoder(w.Body).Decode(&summary)).To(Succeed())
			Expect(summary.TotalEmployees).To(Equal(2))
			Expect(summary.PresentCount).To(Equal(2))
			Expect(summary.AbsentCount).To(Equal(0))
			Expect(summary.LateArrivals).To(HaveLen(1))
			Expect(summary.LateArrivals[0].Profile.Name).To(Equal("Budi"))
		})

		It("should return the trend", func() {
			w := serve(handler.GetTrend, http.MethodGet, "/manager/trend", "user-1")
			Expect(w.Code).To(Equal(http.StatusOK))

			var trend attendance.TrendResponse
			Expect(json.NewDecoder(w.Body).Decode(&trend)).To(Succeed())
			Expect(trend.Days).To(HaveLen(7))
			Expect(trend.Days[6].Present).To(Equal(1))
			Expect(trend.Days[6].Late).To(Equal(1))
		})

		It("should list attendance with joined profiles", func() {
			w := serve(handler.ListAttendance, http.MethodGet, "/manager/attendance?search=budi&status=late", "user-1")
			Expect(w.Code).To(Equal(http.StatusOK))

			var list attendance.ListResponse
			Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
			Expect(list.Total).To(Equal(1))
			Expect(list.Records[0].Profile.EmployeeID).To(Equal("EMP002"))
		})

		It("should reject an unknown status filter", func() {
			w := serve(handler.ListAttendance, http.MethodGet, "/manager/attendance?status=vacation", "user-1")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should export CSV as an attachment", func() {
			w := serve(handler.Export, http.MethodGet, "/manager/attendance/export", "user-1")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/csv"))
			Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("attendance_2024-01-15.csv"))

			lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(Equal("Date,Employee ID,Name,Department,Status,Check In,Check Out,Total Hours"))
			Expect(w.Body.String()).To(ContainSubstring("2024-01-15,EMP002,Budi,Finance,late,10:15,,0"))
		})

		It("should export XLSX", func() {
			w := serve(handler.Export, http.MethodGet, "/manager/attendance/export?format=xlsx", "user-1")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))
			Expect(w.Body.Len()).To(BeNumerically(">", 0))
		})

		It("should reject an unknown export format", func() {
			w := serve(handler.Export, http.MethodGet, "/manager/attendance/export?format=pdf", "user-1")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
