package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		intent    Intent
		treatment treatments.Code
	}{
		{"booking with treatment", "I want to book a medical facial", Booking, treatments.MedicalFacial},
		{"booking needs expression", "book botox", Info, treatments.Botox},
		{"booking needs treatment", "I want to book an appointment", None, treatments.None},
		{"price wins over booking", "I want to book botox, how much is it?", Info, treatments.Botox},
		{"price without treatment", "what are your prices", Info, treatments.None},
		{"fee is a whole word", "I feel like I want to book a facial", Booking, treatments.MedicalFacial},
		{"reschedule", "I need to reschedule my appointment", Reschedule, treatments.None},
		{"reschedule beats view", "can I change my appointment", Reschedule, treatments.None},
		{"view", "show my appointments", View, treatments.None},
		{"cancel", "please cancel my booking", Cancel, treatments.None},
		{"treatment only", "tell me about laser", Info, treatments.LaserTreatment},
		{"nothing", "hello!", None, treatments.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, code := Classify(tt.text)
			assert.Equal(t, tt.intent, in)
			assert.Equal(t, tt.treatment, code)
		})
	}
}

func TestScanSlots(t *testing.T) {
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want Slots
	}{
		{"25/12/2025 3pm botox", Slots{Treatment: treatments.Botox, Date: "2025-12-25", Time: "3:00 PM"}},
		{"tomorrow at 2.30 pm please", Slots{Date: "2025-03-11", Time: "2:30 PM"}},
		{"can I come at 14:30 the day after tomorrow", Slots{Date: "2025-03-12", Time: "2:30 PM"}},
		{"my name is Jane Tan at 4 P.M.", Slots{Time: "4:00 PM", Name: "Jane Tan"}},
		{"name: Ahmad", Slots{Name: "Ahmad"}},
		{"book a facial for Mei Ling next week", Slots{Treatment: treatments.MedicalFacial, Date: "2025-03-17", Name: "Mei Ling"}},
		{"appointment for Botox", Slots{Treatment: treatments.Botox}},
		{"2025-12-25", Slots{Date: "2025-12-25"}},
		{"31/02/2025 at 13 pm", Slots{}},
		{"see you at 10.12.2025", Slots{Date: "2025-12-10"}},
		{"at 10.30 on 12/03/2025", Slots{Date: "2025-03-12", Time: "10:30 AM"}},
		{"hi", Slots{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanSlots(tt.text, today))
		})
	}
}

func TestParseStructured(t *testing.T) {
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	got, ok := ParseStructured("3pm\n25/12/2025\nbotox\nJane Tan", today)
	require.True(t, ok)
	assert.Equal(t, Slots{Treatment: treatments.Botox, Date: "2025-12-25", Time: "3:00 PM", Name: "Jane Tan"}, got)

	got, ok = ParseStructured("  14:00 \n\ntomorrow\nmedical_facial\n", today)
	require.True(t, ok)
	assert.Equal(t, Slots{Treatment: treatments.MedicalFacial, Date: "2025-03-11", Time: "2:00 PM"}, got)

	for _, bad := range []string{
		"3pm\n25/12/2025",
		"3pm\nsoon\nbotox",
		"later\n25/12/2025\nbotox",
		"3pm\n25/12/2025\nnails",
		"3pm\n25/12/2025\nbotox\nJane\nextra",
	} {
		_, ok := ParseStructured(bad, today)
		assert.False(t, ok, bad)
	}
}

func TestExtract(t *testing.T) {
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	ex := Extract("I want to book a medical facial", today)
	assert.Equal(t, Booking, ex.Intent)
	assert.Equal(t, treatments.MedicalFacial, ex.Treatment)
	assert.Equal(t, Slots{Treatment: treatments.MedicalFacial}, ex.Slots)
	assert.False(t, ex.Structured)

	ex = Extract("25/12/2025 3pm botox", today)
	assert.True(t, ex.Slots.Complete())

	ex = Extract("11am\n2025-12-24\nfiller", today)
	assert.True(t, ex.Structured)
	assert.Equal(t, "11:00 AM", ex.Slots.Time)
	assert.Equal(t, treatments.Filler, ex.Slots.Treatment)
}

func TestParseAppointmentRef(t *testing.T) {
	action, n, ok := ParseAppointmentRef("cancel 2")
	require.True(t, ok)
	assert.Equal(t, ActionCancel, action)
	assert.Equal(t, 2, n)

	action, n, ok = ParseAppointmentRef("  Reschedule #1. ")
	require.True(t, ok)
	assert.Equal(t, ActionReschedule, action)
	assert.Equal(t, 1, n)

	for _, bad := range []string{"cancel", "cancel my 2 appointments", "2", "view 1"} {
		_, _, ok := ParseAppointmentRef(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseAnswer(t *testing.T) {
	for _, s := range []string{"yes", "Yes please!", "ok", "sure, go ahead", "Y", "confirm"} {
		assert.Equal(t, Yes, ParseAnswer(s), s)
	}
	for _, s := range []string{"no", "Nope", "not now", "no thanks", "N", "don't"} {
		assert.Equal(t, No, ParseAnswer(s), s)
	}
	for _, s := range []string{"", "maybe", "what time again?", "yes no", "okra", "cannot decide yet"} {
		assert.NotEqual(t, Yes, ParseAnswer(s), s)
	}
	assert.Equal(t, Unclear, ParseAnswer("maybe"))
	assert.Equal(t, Unclear, ParseAnswer("yes no"))

	for _, s := range []string{"okay!", "Sounds good.", "yes, 3pm is fine"} {
		assert.Equal(t, Yes, ParseAnswer(s), s)
	}
	for _, s := range []string{"never mind, stop", "cancel", "Nah not today"} {
		assert.Equal(t, No, ParseAnswer(s), s)
	}
	// change requests and questions at the prompt must not commit anything
	for _, s := range []string{
		"can you make it 4pm instead?",
		"can",
		"right, but 4pm please",
		"great question",
		"k",
		"is that right",
		"make it 4pm instead",
		"don't know yet",
		"ok?",
		"nope, ok",
	} {
		assert.Equal(t, Unclear, ParseAnswer(s), s)
	}
}

func TestSlotsHelpers(t *testing.T) {
	s := Slots{Treatment: treatments.Botox}
	assert.Equal(t, 1, s.Count())
	assert.False(t, s.Complete())

	merged := s.Merge(Slots{Treatment: treatments.Filler, Date: "2025-12-24", Time: "3:00 PM"})
	assert.Equal(t, treatments.Botox, merged.Treatment)
	assert.True(t, merged.Complete())
	assert.Equal(t, 3, merged.Count())
}

func TestWantsBooking(t *testing.T) {
	assert.True(t, WantsBooking("I want to make an appointment"))
	assert.True(t, WantsBooking("can i book something this week"))
	assert.False(t, WantsBooking("how much to book botox"))
	assert.False(t, WantsBooking("hello there"))
}
