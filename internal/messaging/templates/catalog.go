package templates

import "fmt"

// Key names a customer-facing message.
type Key string

const (
	AskForDate               Key = "ask_for_date"
	AskForDateWithTime       Key = "booking_with_time_confirmation"
	AskForTreatment          Key = "ask_for_treatment"
	AskForTreatmentOnDate    Key = "ask_for_treatment_on_date"
	UnknownTreatment         Key = "unknown_treatment"
	AvailableSlots           Key = "available_slots"
	NoAvailableSlots         Key = "no_available_slots"
	AlternativeTimes         Key = "alternative_times"
	AskName                  Key = "ask_name"
	BookingConfirmation      Key = "booking_confirmation_prompt"
	BookingSuccess           Key = "booking_success"
	BookingError             Key = "booking_error"
	BookingCanceled          Key = "booking_canceled"
	CapacityReached          Key = "capacity_reached"
	DateFormatError          Key = "date_format_error"
	TimeFormatError          Key = "time_format_error"
	PublicHolidayClosed      Key = "public_holiday_closed"
	PastDateError            Key = "past_date_error"
	ClinicClosed             Key = "clinic_closed"
	DateTooFar               Key = "date_too_far"
	SessionTimeout           Key = "session_timeout"
	ViewAppointments         Key = "view_appointments"
	NoAppointments           Key = "no_appointments"
	WhichToCancel            Key = "which_appointment_to_cancel"
	WhichToReschedule        Key = "which_appointment_to_reschedule"
	NoAppointmentsToCancel   Key = "no_appointments_to_cancel"
	NoAppointmentsToResched  Key = "no_appointments_to_reschedule"
	CancelSuccess            Key = "cancel_success"
	SelectedToReschedule     Key = "selected_appointment_to_reschedule"
	ProvideRescheduleDate    Key = "provide_reschedule_date"
	RescheduleSuccess        Key = "reschedule_success"
	RescheduleError          Key = "reschedule_error"
	InvalidAppointmentIndex  Key = "invalid_appointment_index"
	EnterValidNumber         Key = "enter_valid_number"
	SelectionAbandoned       Key = "selection_abandoned"
	AvailabilityCheckError   Key = "availability_check_error"
	APIErrorFallback         Key = "api_error_fallback"
	GenericError             Key = "generic_error"
	RateLimitExceeded        Key = "rate_limit_exceeded"
	GeneralFallback          Key = "general_fallback"
	AppointmentBookingFormat Key = "appointment_booking_format"
	AppointmentReminder      Key = "appointment_reminder"
	PromotionsOptOut         Key = "promotions_opt_out"
	PromotionsOptIn          Key = "promotions_opt_in"
)

// Catalog maps each key to its phrasings.
type Catalog map[Key][]string

// Validate parses every phrasing so a typo fails at startup, not mid-chat.
func (c Catalog) Validate() error {
	for key, variants := range c {
		if len(variants) == 0 {
			return fmt.Errorf("templates: %s has no variations", key)
		}
		for i, v := range variants {
			if _, err := parse(fmt.Sprintf("%s#%d", key, i), v); err != nil {
				return err
			}
		}
	}
	return nil
}

const dateHint = "a date like DD/MM/YYYY, or say 'tomorrow' or 'next week'"

const hours = "Mon-Fri 11am-8pm, Sat 11am-10pm"

// DefaultCatalog returns the clinic's standard copy. Templates that mention
// the clinic phone expect a ClinicPhone default on the Provider.
func DefaultCatalog() Catalog {
	return Catalog{
		AskForDate: {
			"When would you like to come in for your {{.Treatment}}? Please send " + dateHint + ".",
			"What date works for your {{.Treatment}}? You can send " + dateHint + ".",
			"Let's find a day for your {{.Treatment}}. Please send " + dateHint + ".",
		},
		AskForDateWithTime: {
			"I see you'd like a {{.Treatment}} at {{.Time}}. What date would you prefer? Please send " + dateHint + ".",
			"Great choice! For your {{.Treatment}} at {{.Time}}, which date works best? You can send " + dateHint + ".",
			"A {{.Treatment}} at {{.Time}} sounds good. Now I just need a date: " + dateHint + ".",
		},
		AskForTreatment: {
			"Which treatment would you like to book? We offer consultation, medical facial, laser treatment, botox, filler and follow-up visits.",
			"What would you like to come in for? Options are consultation, medical facial, laser treatment, botox, filler or a follow-up.",
			"Happy to help you book! Which treatment is it for: consultation, medical facial, laser treatment, botox, filler or follow-up?",
		},
		AskForTreatmentOnDate: {
			"Got it, {{.Date}}. Which treatment would you like to book? We offer consultation, medical facial, laser treatment, botox, filler and follow-up visits.",
			"{{.Date}} noted. What would you like to come in for: consultation, medical facial, laser treatment, botox, filler or follow-up?",
			"Sure, {{.Date}} it is. Which treatment is the appointment for?",
		},
		UnknownTreatment: {
			"Sorry, I didn't catch the treatment. Please choose one of: consultation, medical facial, laser treatment, botox, filler or follow-up.",
			"I couldn't match that to a treatment we book online. Could you pick consultation, medical facial, laser treatment, botox, filler or follow-up?",
			"Which of these would you like: consultation, medical facial, laser treatment, botox, filler or follow-up?",
		},
		AvailableSlots: {
			"For your {{.Treatment}} on {{.Date}}, here are the available times:\n\n{{.Times}}\n\nPlease reply with your preferred time.",
			"On {{.Date}} you can choose from these times for your {{.Treatment}}:\n\n{{.Times}}\n\nWhich time works best for you?",
			"Here are the open slots for your {{.Treatment}} on {{.Date}}:\n\n{{.Times}}\n\nLet me know which one you prefer.",
		},
		NoAvailableSlots: {
			"I'm sorry, there are no available times on {{.Date}}. Please choose another date.",
			"Unfortunately we're fully booked on {{.Date}}. Could you try a different date?",
			"All our slots are taken on {{.Date}}. Would you like to try another day?",
		},
		AlternativeTimes: {
			"I'm sorry, {{.Time}} is not available on {{.Date}}. Here are the available times:\n\n{{.Slots}}\n\nWould you like one of these instead?",
			"{{.Time}} is already taken on {{.Date}}. You could choose from:\n\n{{.Slots}}\n\nWhich one works for you?",
			"Unfortunately {{.Time}} isn't free on {{.Date}}. These times are open:\n\n{{.Slots}}\n\nDo any of these work?",
		},
		AskName: {
			"Could you please tell me your name so I can complete the booking?",
			"I just need your name to finalize this booking. What should I put it under?",
			"What name would you like to use for this appointment?",
		},
		BookingConfirmation: {
			"I'll book a {{.Treatment}} for {{.Name}} on {{.Date}} at {{.Time}}. Your number ({{.Number}}) will be linked to this appointment. Is this correct? Please reply 'yes' or 'no'.",
			"Shall I book your {{.Treatment}} on {{.Date}} at {{.Time}} under the name {{.Name}}? Please confirm with 'yes' or 'no'.",
			"Ready to book: {{.Treatment}} on {{.Date}} at {{.Time}} for {{.Name}} ({{.Number}}). Does this look right? Reply 'yes' or 'no'.",
		},
		BookingSuccess: {
			"Your {{.Treatment}} is booked for {{.Date}} at {{.Time}}.\n\nThe appointment takes about {{.Duration}}.\n\nPlease arrive 10 minutes early. If you need to cancel or reschedule, let me know at least 24 hours in advance.",
			"Confirmed! Your {{.Treatment}} is on {{.Date}} at {{.Time}} and will take about {{.Duration}}.\n\nPlease come 10 minutes early. Need to change it? Let me know 24 hours before.",
			"All set! {{.Treatment}} on {{.Date}} at {{.Time}} (about {{.Duration}}).\n\n*Please note:* arrive 10 minutes early and give us 24 hours notice for any changes.",
		},
		BookingError: {
			"I ran into a problem with the booking: {{.Error}}. Please call our clinic directly at {{.ClinicPhone}} for help.",
			"There was an issue booking your appointment: {{.Error}}. Please contact our clinic at {{.ClinicPhone}}.",
			"I couldn't complete your booking: {{.Error}}. Please reach our team at {{.ClinicPhone}}.",
		},
		BookingCanceled: {
			"No problem, I've dropped that booking. Let me know if you'd like to schedule something else.",
			"Okay, the booking request is cancelled. Would you like to try a different appointment?",
			"Understood, nothing was booked. Just message me when you'd like to schedule.",
		},
		CapacityReached: {
			"You already have {{.Max}} upcoming appointments, which is the most we can hold per customer. Please cancel or complete one before booking another.",
			"It looks like you have {{.Max}} appointments coming up already. To book another, please cancel one first or call us at {{.ClinicPhone}}.",
			"We can only hold {{.Max}} future appointments per customer, and you've reached that. Reply 'view appointments' to see them.",
		},
		DateFormatError: {
			"I'm not sure about that date. Please send " + dateHint + ".",
			"That date wasn't clear to me. Could you send " + dateHint + "?",
			"Please provide a valid date: " + dateHint + ".",
		},
		TimeFormatError: {
			"I couldn't understand that time. Please send a time like '2:30 PM' or '14:30'.",
			"Sorry, I didn't recognize that time. Could you use '2:30 PM' or '14:30'?",
			"That time format wasn't clear. Please reply with something like '2:30 PM' or '14:30'.",
		},
		PublicHolidayClosed: {
			"That date is a public holiday and the clinic will be closed. Please choose another date.",
			"We're closed on public holidays, so that date won't work. Could you pick another day?",
			"I'm afraid the clinic is closed that day for a public holiday. Please send another date.",
		},
		PastDateError: {
			"That date has already passed. Please choose a date in the future.",
			"Time travel isn't possible yet! Please pick an upcoming date.",
			"We can only book future dates. Please select an upcoming date.",
		},
		ClinicClosed: {
			"The clinic is closed on that day. Our hours are " + hours + ". Please pick another date.",
			"We're not open that day. Could you choose a different date? We're open " + hours + ".",
			"Our clinic won't be open then (we're closed on Sundays). Please pick another date.",
		},
		DateTooFar: {
			"We can only take bookings up to {{.Days}} days ahead. Please choose an earlier date.",
			"That's a bit too far out. Bookings open {{.Days}} days in advance, so please pick a closer date.",
			"Our calendar only goes {{.Days}} days ahead. Could you choose an earlier date?",
		},
		SessionTimeout: {
			"Your booking request has timed out. Please start again whenever you're ready.",
			"It looks like our conversation was idle for too long. Let's start the booking again.",
			"Our booking session expired due to inactivity. Please begin again when you're ready.",
		},
		ViewAppointments: {
			"Here are your upcoming appointments:\n\n{{.AppointmentList}}\n\nTo change one, reply 'reschedule <number>' or 'cancel <number>'.",
			"These are the appointments you have scheduled:\n\n{{.AppointmentList}}\n\nYou can reschedule or cancel by number, e.g. 'cancel 1'.",
			"I found these upcoming appointments for you:\n\n{{.AppointmentList}}\n\nReply 'reschedule <number>' or 'cancel <number>' to change one.",
		},
		NoAppointments: {
			"You don't have any upcoming appointments. Would you like to book one?",
			"I don't see any appointments under your number. Would you like to schedule one?",
			"You currently have no appointments with us. Just tell me what you'd like to book!",
		},
		WhichToCancel: {
			"Which appointment would you like to cancel? Please reply with the number:\n\n{{.AppointmentList}}",
			"Please select the appointment to cancel by number:\n\n{{.AppointmentList}}",
			"Which of these should I cancel? Reply with the number:\n\n{{.AppointmentList}}",
		},
		WhichToReschedule: {
			"Which appointment would you like to reschedule? Please reply with the number:\n\n{{.AppointmentList}}",
			"Please select the appointment to reschedule by number:\n\n{{.AppointmentList}}",
			"Which of these appointments would you like to move? Reply with the number:\n\n{{.AppointmentList}}",
		},
		NoAppointmentsToCancel: {
			"You don't have any upcoming appointments to cancel.",
			"I don't see any scheduled appointments that can be cancelled.",
			"There are no upcoming appointments under your number.",
		},
		NoAppointmentsToResched: {
			"You don't have any upcoming appointments to reschedule. Would you like to book a new one instead?",
			"I don't see any scheduled appointments to move. Would you like to make a new booking?",
			"There are no upcoming appointments to change. Would you like to schedule a fresh one?",
		},
		CancelSuccess: {
			"Your {{.Treatment}} on {{.Date}} at {{.Time}} has been cancelled. Thanks for letting us know!",
			"I've cancelled your {{.Treatment}} scheduled for {{.Date}} at {{.Time}}. Feel free to book again when you're ready.",
			"Done! Your {{.Treatment}} on {{.Date}} at {{.Time}} is cancelled.",
		},
		SelectedToReschedule: {
			"Let's move your {{.Treatment}} on {{.Date}} at {{.Time}}. Please send a new date: " + dateHint + ".",
			"I'll help you reschedule your {{.Treatment}} currently on {{.Date}} at {{.Time}}. What new date works? Send " + dateHint + ".",
			"Rescheduling your {{.Treatment}} from {{.Date}} at {{.Time}}. Which date would you prefer? Send " + dateHint + ".",
		},
		ProvideRescheduleDate: {
			"Please send a new date for your appointment: " + dateHint + ".",
			"When would you like to move it to? Send " + dateHint + ".",
			"What's a better date for you? Send " + dateHint + ".",
		},
		RescheduleSuccess: {
			"Your appointment has been moved to {{.Date}} at {{.Time}}. See you then!",
			"Done! Your appointment is now on {{.Date}} at {{.Time}}.",
			"All set, you're now booked for {{.Date}} at {{.Time}}.",
		},
		RescheduleError: {
			"I ran into a problem rescheduling: {{.Error}}. Please try another date or time, or call us at {{.ClinicPhone}}.",
			"There was an issue moving your appointment: {{.Error}}. You can try again or call {{.ClinicPhone}}.",
			"I couldn't reschedule your appointment: {{.Error}}. Please call our team at {{.ClinicPhone}}.",
		},
		InvalidAppointmentIndex: {
			"That number doesn't match an appointment. You have {{.Count}} upcoming appointments.",
			"Please choose a number between 1 and {{.Count}}.",
			"I need a number between 1 and {{.Count}} to know which appointment you mean.",
		},
		EnterValidNumber: {
			"Please reply with the number of the appointment you mean.",
			"I need the appointment number, e.g. '1'.",
			"Could you send the number of the appointment from the list?",
		},
		SelectionAbandoned: {
			"I still couldn't tell which appointment you meant, so I've stopped here. Send 'show my appointments' to see the list, then 'cancel 1' or 'reschedule 1' with its number.",
			"Let's start over: reply 'show my appointments' to see your bookings, then send 'cancel' or 'reschedule' with the appointment number.",
			"I didn't get a valid appointment number. Message 'show my appointments' anytime and pick one by its number, e.g. 'reschedule 2'.",
		},
		AvailabilityCheckError: {
			"I ran into a problem checking availability: {{.Error}}. Please try a different date.",
			"There was an issue loading the open times: {{.Error}}. Could you try another date?",
			"I couldn't retrieve the available slots: {{.Error}}. Please try a different date.",
		},
		APIErrorFallback: {
			"I'm having trouble processing your request right now. Please try again later or call our clinic at {{.ClinicPhone}} during opening hours (" + hours + ").",
			"Something went wrong on my side. Please try again soon or call us at {{.ClinicPhone}} (" + hours + ").",
			"I can't help with that at the moment. For immediate assistance please call *{{.ClinicPhone}}* during our opening hours:\n" + hours + ".",
		},
		GenericError: {
			"I'm sorry, something went wrong: {{.Error}}. Please try again later or call us at {{.ClinicPhone}}.",
			"Something went wrong: {{.Error}}. You can always reach us at {{.ClinicPhone}}.",
			"There was a problem with your request: {{.Error}}. Please try again or contact the clinic at {{.ClinicPhone}}.",
		},
		RateLimitExceeded: {
			"You're sending messages too quickly. Please slow down and try again in a minute.",
			"That's a lot of messages at once! Please wait a moment before trying again.",
			"I can't keep up! Please slow down and try again shortly.",
		},
		GeneralFallback: {
			"I'm not sure how to respond to that. Would you like to book an appointment, check your appointments, or learn about our treatments?",
			"I didn't quite catch that. Can I help you book, view your appointments, or answer a question about our treatments?",
			"Sorry, I didn't follow. Would you like to schedule an appointment, view your bookings, or ask about our services?",
		},
		AppointmentBookingFormat: {
			"I'd be happy to help you book! Please tell me:\n1. The treatment (consultation, medical facial, laser treatment, botox, filler or follow-up)\n2. Your preferred date\n3. Your preferred time\n4. Your name\n\nFor example: 'I'd like to book a consultation on 20/03/2025 at 2:00 PM'",
			"Let's get you booked! Please send the treatment, date, time and your name.\n\nFor example:\n2:00 PM\n20/03/2025\nconsultation\nJane Tan",
			"To book, please share:\n1. *Treatment*\n2. *Date*\n3. *Time*\n4. *Your name*\n\nFor example: 'I want a laser treatment on 25/03/2025 at 3:30 PM'",
		},
		AppointmentReminder: {
			"Reminder: your {{.Treatment}} appointment is on {{.Date}} at {{.Time}}. Please arrive 10 minutes early. Need to reschedule? Let us know as soon as possible.",
			"Just a friendly reminder of your {{.Treatment}} at {{.Time}} on {{.Date}}. Please arrive 10 minutes early. See you soon!",
			"Your {{.Treatment}} is coming up at {{.Time}} on {{.Date}}. Please arrive 10 minutes early. We look forward to seeing you!",
		},
		PromotionsOptOut: {
			"You've been unsubscribed from our weekly offers. Appointment messages will still reach you. Reply SUBSCRIBE anytime to rejoin.",
			"Done, no more promotions from us. You'll still get your appointment reminders. Reply SUBSCRIBE if you change your mind.",
		},
		PromotionsOptIn: {
			"You're subscribed to our weekly offers. Reply UNSUBSCRIBE anytime to stop them.",
			"Welcome back! You'll get our weekly offers again. Reply UNSUBSCRIBE to stop.",
		},
	}
}
