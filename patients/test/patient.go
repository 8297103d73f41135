package test

import (
	"time"

	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/test"
)

var conditions = []string{"Glaucoma suspect", "Ocular hypertension", "Diabetes", "Migraine", "Myopia", "Cataract"}

func strp(s string) *string {
	return &s
}

func RandomPatient() patients.Patient {
	now := time.Now()
	return patients.Patient{
		FirstName:         test.Faker.Person().FirstName(),
		LastName:          test.Faker.Person().LastName(),
		DateOfBirth:       test.RandomDate(now.AddDate(-90, 0, 0), now.AddDate(-18, 0, 0)),
		Email:             test.Faker.Internet().Email(),
		Phone:             test.Faker.Phone().Number(),
		Address:           test.Faker.Address().Address(),
		MedicalHistory:    RandomMedicalHistory(),
		InsuranceProvider: test.Faker.Company().Name(),
		Status:            patients.StatusActive,
		LastVisit:         strp(test.RandomDate(now.AddDate(-1, 0, 0), now)),
	}
}

func RandomMedicalHistory() []string {
	count := test.Faker.IntBetween(0, 3)
	history := make([]string, 0, count)
	for _, i := range test.Rand.Perm(len(conditions))[:count] {
		history = append(history, conditions[i])
	}
	return history
}

func RandomPatch() patients.Patch {
	patient := RandomPatient()
	status := patients.StatusInactive
	return patients.Patch{
		FirstName: &patient.FirstName,
		Phone:     &patient.Phone,
		Status:    &status,
	}
}
