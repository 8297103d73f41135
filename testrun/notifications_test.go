package testrun_test

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/testrun"
)

var _ = Describe("Notifications", func() {
	var clock *testrun.ManualClock
	var notifications *testrun.Notifications

	BeforeEach(func() {
		clock = testrun.NewManualClock(time.Unix(0, 0))
		notifications = testrun.NewNotifications(clock.Now)
	})

	It("shows the most recent first", func() {
		notifications.Push(testrun.NotificationInfo, "first")
		notifications.Push(testrun.NotificationWarning, "second")

		visible := notifications.Visible()
		Expect(visible).To(HaveLen(2))
		Expect(visible[0].Message).To(Equal("second"))
		Expect(visible[0].Id).ToNot(Equal(visible[1].Id))
	})

	It("keeps at most five", func() {
		for i := 0; i < 8; i++ {
			notifications.Push(testrun.NotificationInfo, fmt.Sprintf("message %d", i))
		}
		visible := notifications.Visible()
		Expect(visible).To(HaveLen(testrun.MaxVisibleNotifications))
		Expect(visible[0].Message).To(Equal("message 7"))
		Expect(visible[4].Message).To(Equal("message 3"))
	})

	It("expires after five seconds", func() {
		notifications.Push(testrun.NotificationInfo, "old")
		clock.Advance(3 * time.Second)
		notifications.Push(testrun.NotificationInfo, "new")
		clock.Advance(2 * time.Second)

		visible := notifications.Visible()
		Expect(visible).To(HaveLen(1))
		Expect(visible[0].Message).To(Equal("new"))

		clock.Advance(3 * time.Second)
		Expect(notifications.Visible()).To(BeEmpty())
	})
})

var _ = Describe("ClassifyFailure", func() {
	DescribeTable("maps persistence errors",
		func(err error, expected testrun.FailureKind) {
			Expect(testrun.ClassifyFailure(err)).To(Equal(expected))
		},
		Entry("row-level security", gateway.NewRemoteError("test_results", "insert", errs.Forbidden, `new row violates row-level security policy for table "test_results"`), testrun.FailureAuth),
		Entry("expired jwt", errors.New("JWT expired"), testrun.FailureAuth),
		Entry("network", errors.New("Failed to fetch"), testrun.FailureNetwork),
		Entry("timeout", errors.New("server selection timeout"), testrun.FailureNetwork),
		Entry("foreign key", gateway.ForeignKeyError("test_results", "insert", "patient_id"), testrun.FailureForeignKey),
		Entry("anything else", errors.New("disk full"), testrun.FailureGeneric),
	)

	It("has a message for every kind", func() {
		for _, kind := range []testrun.FailureKind{testrun.FailureAuth, testrun.FailureNetwork, testrun.FailureForeignKey, testrun.FailureGeneric} {
			Expect(kind.Message()).ToNot(BeEmpty())
		}
	})
})

var _ = Describe("ManualClock", func() {
	It("fires timers in order and stops them", func() {
		clock := testrun.NewManualClock(time.Unix(0, 0))
		fired := make([]string, 0)

		stopTicker := clock.Every(time.Second, func(time.Time) { fired = append(fired, "tick") })
		clock.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "once") })

		clock.Advance(2 * time.Second)
		Expect(fired).To(Equal([]string{"tick", "once", "tick"}))

		stopTicker()
		clock.Advance(5 * time.Second)
		Expect(fired).To(HaveLen(3))
		Expect(clock.Now()).To(Equal(time.Unix(7, 0)))
	})
})
