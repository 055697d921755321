package booking

import (
	"fmt"
	"strings"

	"medbook/internal/models"
)

var fieldPrompts = map[models.Field]string{
	models.FieldName:      "May I have your full name?",
	models.FieldEmail:     "Please provide your email address.",
	models.FieldPhone:     "What is your phone number?",
	models.FieldSpecialty: "Which doctor or specialty would you like to consult?",
	models.FieldDate:      "What date would you prefer for the appointment? (YYYY-MM-DD)",
	models.FieldTime:      "What time would you prefer? (e.g., 10:30 AM)",
}

var fieldErrors = map[models.Field]string{
	models.FieldEmail: "❌ Please enter a valid email address.",
	models.FieldPhone: "❌ Please enter a valid phone number (digits only).",
	models.FieldDate:  "❌ Please enter date in YYYY-MM-DD format.",
	models.FieldTime:  "❌ Please enter a valid time (e.g., 10:30 AM).",
}

const (
	msgConflictReprompt = "Please reply Yes to continue with the same time or No to choose a different slot."
	msgCancelled        = "❌ Booking cancelled. Let me know if you'd like to start again."
	msgEmailSent        = "📧 A confirmation email has been sent."
	msgEmailFailed      = "⚠️ Email could not be sent, but your booking was saved."
	msgSaveFailed       = "⚠️ Sorry, we could not save your booking right now. Reply Yes to try again or No to cancel."
)

// Prompt returns the question for a field.
func Prompt(f models.Field) string {
	return fieldPrompts[f]
}

func suggestionLine(slots []string) string {
	if len(slots) == 0 {
		return ""
	}
	return "\n\n🕒 Available nearby slots: " + strings.Join(slots, ", ")
}

func conflictMessage(suggested []string) string {
	return "⚠️ The selected time slot is already booked for this specialty.\n\n" +
		"Would you like to continue anyway?\n" +
		"Reply Yes to continue or No to choose another time." +
		suggestionLine(suggested)
}

func slotTakenMessage(suggested []string) string {
	return "⚠️ Sorry, that time slot was just booked by someone else." +
		suggestionLine(suggested) +
		"\n\n" + Prompt(models.FieldTime)
}

// Summary lists the collected details and asks for confirmation.
func Summary(d *models.BookingDraft) string {
	return "📝 Please confirm your appointment details:\n\n" +
		fmt.Sprintf("- Name: %s\n", d.Name) +
		fmt.Sprintf("- Email: %s\n", d.Email) +
		fmt.Sprintf("- Phone: %s\n", d.Phone) +
		fmt.Sprintf("- Doctor/Specialty: %s\n", d.Specialty) +
		fmt.Sprintf("- Date: %s\n", d.Date) +
		fmt.Sprintf("- Time: %s\n\n", d.Time) +
		"✅ Please reply with Yes to confirm or No to cancel."
}

func confirmedMessage(bookingID int64, emailSent bool) string {
	tail := msgEmailFailed
	if emailSent {
		tail = msgEmailSent
	}
	return fmt.Sprintf("✅ Your appointment is confirmed!\n\n📌 Booking ID: %d\n\n%s", bookingID, tail)
}

// EmailBody is the plain-text confirmation sent to the patient.
func EmailBody(d *models.BookingDraft, bookingID int64) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"Your doctor appointment has been confirmed.\n\n"+
		"Booking ID: %d\n"+
		"Doctor/Specialty: %s\n"+
		"Date: %s\n"+
		"Time: %s\n\n"+
		"Thank you for using our service.",
		d.Name, bookingID, d.Specialty, d.Date, d.Time)
}
