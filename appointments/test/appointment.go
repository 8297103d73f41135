package test

import (
	"fmt"
	"time"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/test"
)

var appointmentTypes = []string{"Visual field test", "Follow-up", "Consultation", "IOP check"}

func RandomAppointment(patientId string) appointments.Appointment {
	now := time.Now()
	return appointments.Appointment{
		PatientId: patientId,
		Date:      test.RandomDate(now, now.AddDate(0, 3, 0)),
		Time:      fmt.Sprintf("%02d:%02d", test.Faker.IntBetween(8, 17), test.Faker.RandomIntElement([]int{0, 15, 30, 45})),
		Type:      appointmentTypes[test.Rand.Intn(len(appointmentTypes))],
		Status:    appointments.StatusScheduled,
		Notes:     test.Faker.Lorem().Sentence(4),
	}
}
