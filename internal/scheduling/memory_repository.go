package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is a mutex-guarded in-memory Repository. It backs
// cmd/simulate and the package tests; semantics mirror PgRepository,
// including the all-or-nothing commits.
type MemoryRepository struct {
	mu           sync.Mutex
	patients     map[string]PatientRecord // identity key
	slots        map[string]SlotRecord    // natural key
	appointments map[string]AppointmentRecord
	order        []string // appointment ids in creation order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[string]PatientRecord),
		slots:        make(map[string]SlotRecord),
		appointments: make(map[string]AppointmentRecord),
	}
}

func identityKey(first, last, dob string) string {
	return strings.ToLower(first) + "|" + strings.ToLower(last) + "|" + dob
}

func (m *MemoryRepository) FindPatient(_ context.Context, first, last, dob string) (*PatientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patients[identityKey(first, last, dob)]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) UpsertPatient(_ context.Context, p PatientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patients[identityKey(p.FirstName, p.LastName, p.DOB)] = p
	return nil
}

func (m *MemoryRepository) DeletePatient(_ context.Context, first, last, dob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.patients, identityKey(first, last, dob))
	return nil
}

func (m *MemoryRepository) CountPatients(_ context.Context) (returning, fresh int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.patients {
		if p.IsReturning {
			returning++
		} else {
			fresh++
		}
	}
	return returning, fresh, nil
}

func (m *MemoryRepository) GetSlot(_ context.Context, doctor, date, tm string) (*SlotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[doctor+"|"+date+"|"+tm]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (m *MemoryRepository) AvailableSlots(_ context.Context, doctor string, after time.Time, limit int) ([]SlotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := after.Format(SlotDateLayout + " " + SlotTimeLayout)

	var result []SlotRecord
	for _, s := range m.slots {
		if s.Doctor != doctor || !s.IsAvailable {
			continue
		}
		if s.Date+" "+s.Time <= cutoff {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryRepository) InsertSlots(_ context.Context, slots []SlotRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, s := range slots {
		if _, exists := m.slots[s.Key()]; exists {
			continue
		}
		m.slots[s.Key()] = s
		inserted++
	}
	return inserted, nil
}

func (m *MemoryRepository) SetSlotAvailability(_ context.Context, doctor, date, tm string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := doctor + "|" + date + "|" + tm
	s, ok := m.slots[key]
	if !ok {
		return ErrSlotNotFound
	}
	s.IsAvailable = available
	m.slots[key] = s
	return nil
}

func (m *MemoryRepository) GetAppointment(_ context.Context, id string) (*AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) LatestConfirmedByPatient(_ context.Context, first, last, dob string) (*AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.appointments[m.order[i]]
		if a.Status != StatusConfirmed {
			continue
		}
		if strings.EqualFold(a.PatientFirstName, first) &&
			strings.EqualFold(a.PatientLastName, last) &&
			a.PatientDOB == dob {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *MemoryRepository) ConfirmedForSlot(_ context.Context, doctor, date, tm string) (*AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		a := m.appointments[id]
		if a.Status == StatusConfirmed && a.Doctor == doctor && a.Date == date && a.Time == tm {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *MemoryRepository) ListAppointments(_ context.Context) ([]AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]AppointmentRecord, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.appointments[id])
	}
	return result, nil
}

func (m *MemoryRepository) CommitBooking(_ context.Context, appt AppointmentRecord, newPatient *PatientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := appt.SlotKey()
	slot, ok := m.slots[key]
	if !ok || !slot.IsAvailable {
		return ErrSlotUnavailable
	}

	slot.IsAvailable = false
	m.slots[key] = slot
	m.appointments[appt.ID] = appt
	m.order = append(m.order, appt.ID)

	if newPatient != nil {
		m.patients[identityKey(newPatient.FirstName, newPatient.LastName, newPatient.DOB)] = *newPatient
	}
	return nil
}

func (m *MemoryRepository) CommitCancellation(_ context.Context, id, reason string, at time.Time, removePatient bool) (*AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	a.Status = StatusCancelled
	a.CancellationReason = reason
	cancelledAt := at
	a.CancelledAt = &cancelledAt
	m.appointments[id] = a

	if slot, ok := m.slots[a.SlotKey()]; ok {
		slot.IsAvailable = true
		m.slots[a.SlotKey()] = slot
	}

	if removePatient {
		delete(m.patients, identityKey(a.PatientFirstName, a.PatientLastName, a.PatientDOB))
	}

	return &a, nil
}
