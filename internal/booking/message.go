package booking

import (
	"fmt"
	"strconv"
	"time"
)

// Mail templates.
const (
	TemplateJobAccepted           = "emails.job-accepted"
	TemplateJobAcceptedTranslator = "emails.job-accepted-translator"
	TemplateSessionEnded          = "emails.session-ended"
	TemplateStatusChangedCustomer = "emails.status-changed-from-pending-or-assigned-customer"
	TemplateJobCancelTranslator   = "emails.job-cancel-translator"
	TemplateChangedTranslatorCust = "emails.job-changed-translator-customer"
	TemplateChangedTranslatorOld  = "emails.job-changed-translator-old-translator"
	TemplateChangedTranslatorNew  = "emails.job-changed-translator-new-translator"
	TemplateJobChangedDate        = "emails.job-changed-date"
	TemplateJobChangedLang        = "emails.job-changed-lang"
)

// Push notification types carried in the payload data.
const (
	NotificationSuitableJob     = "suitable_job"
	NotificationJobAccepted     = "job_accepted"
	NotificationJobCancelled    = "job_cancelled"
	NotificationSessionReminder = "session_start_remind"
	NotificationJobExpired      = "job_expired"
)

const (
	tooLateToCancelMessage = "Du kan inte avboka en bokning som sker inom 24 timmar genom DigitalTolk. Vänligen ring på +46 73 75 86 865 och gör din avbokning över telefon. Tack!"
	reopenCommentFormat    = "This booking is a reopening of booking #%d"
)

func subjectAccepted(jobID int64) string {
	return fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", jobID)
}

func subjectAcceptedTranslator(jobID int64) string {
	return fmt.Sprintf("Bekräftelse - du har accepterat bokning # %d", jobID)
}

func subjectSessionEnded(jobID int64) string {
	return fmt.Sprintf("Information om avslutad tolkning för bokningsnummer # %d", jobID)
}

func subjectReassigned(jobID int64) string {
	return fmt.Sprintf("Meddelande om tilldelning av tolkuppdrag för uppdrag #%d)", jobID)
}

func subjectChanged(jobID int64) string {
	return fmt.Sprintf("Meddelande om ändring av tolkbokning för uppdrag # %d", jobID)
}

func subjectCancelled(jobID int64) string {
	return fmt.Sprintf("Information om avslutad tolkning för bokningsnummer #%d", jobID)
}

func dueText(t time.Time) string {
	return t.Format(DueLayout)
}

// SuitableJobText is the push text offering a job to translators.
func SuitableJobText(job *Job, language string) string {
	if job.Immediate {
		return fmt.Sprintf("Ny akutbokning för %stolk %dmin", language, job.Duration)
	}
	return fmt.Sprintf("Ny bokning för %stolk %dmin %s", language, job.Duration, dueText(job.Due))
}

// SessionReminderText is the push text reminding a translator of an upcoming session.
func SessionReminderText(job *Job, language string) string {
	where := "telefon"
	if job.CustomerPhysicalType {
		where = job.Town
	}
	return fmt.Sprintf(
		"Detta är en påminnelse om din %s-tolkning (%s) kl %s den %s med en varaktighet av %d minuter. Kom ihåg att ge feedback efter utförd tolkning!",
		language, where, job.Due.Format("15:04"), job.Due.Format("2006-01-02"), job.Duration,
	)
}

// JobAcceptedText is the push text telling the customer a translator accepted.
func JobAcceptedText(job *Job, language string) string {
	return fmt.Sprintf("Din bokning för %stolk %dmin %s har accepterats av en tolk.", language, job.Duration, dueText(job.Due))
}

// CustomerCancelledText is the push text telling the translator the customer withdrew.
func CustomerCancelledText(job *Job, language string) string {
	return fmt.Sprintf("Kunden har avbokat bokningen för %stolk, %dmin, %s. Var god och kolla dina tidigare bokningar för detaljer.", language, job.Duration, dueText(job.Due))
}

// TranslatorCancelledText is the push text telling the customer the translator withdrew.
func TranslatorCancelledText(job *Job, language string) string {
	return fmt.Sprintf("Er %stolk, %dmin %s, har avbokat tolkningen. Vi letar nu efter en ny tolk som kan ersätta denne. Tack.", language, job.Duration, dueText(job.Due))
}

// ExpiredText is the push text telling the customer nobody accepted in time.
func ExpiredText(job *Job, language string) string {
	return fmt.Sprintf("Tyvärr har ingen tolk accepterat er bokning: (%s, %dmin, %s). Vänligen pröva boka om tiden.", language, job.Duration, dueText(job.Due))
}

// SMSText is the text sent to a potential translator when SMS alerts are resent.
func SMSText(job *Job, city string) string {
	date := job.Due.Format("02.01.2006")
	clock := job.Due.Format("15:04")
	duration := HoursMins(job.Duration)

	if job.PhysicalOnly() {
		return fmt.Sprintf(
			"Du har fått en förfrågan om platstolkning i %s den %s kl %s, %s. Uppdrag #%d. Logga in i appen för att svara.",
			city, date, clock, duration, job.ID,
		)
	}
	return fmt.Sprintf(
		"Du har fått en förfrågan om telefontolkning den %s kl %s, %s. Uppdrag #%d. Logga in i appen för att svara.",
		date, clock, duration, job.ID,
	)
}

// HoursMins renders a duration in minutes the way SMS texts show it.
func HoursMins(minutes int) string {
	switch {
	case minutes < 60:
		return strconv.Itoa(minutes) + "min"
	case minutes == 60:
		return "1h"
	default:
		return fmt.Sprintf("%02dh %02dmin", minutes/60, minutes%60)
	}
}

// FormatSessionTime renders an elapsed duration as H:MM:SS.
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// SessionTimeText renders an H:MM:SS session time as "H tim M min" for emails.
func SessionTimeText(sessionTime string) string {
	var h, m, s int
	if _, err := fmt.Sscanf(sessionTime, "%d:%d:%d", &h, &m, &s); err != nil {
		return sessionTime
	}
	return fmt.Sprintf("%d tim %02d min", h, m)
}

// pushData is the job projection carried in every push payload.
func pushData(job *Job, language, notificationType string) map[string]string {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	return map[string]string{
		"job_id":                 strconv.FormatInt(job.ID, 10),
		"from_language_id":       strconv.FormatInt(job.FromLanguageID, 10),
		"language":               language,
		"immediate":              yesNo(job.Immediate),
		"duration":               strconv.Itoa(job.Duration),
		"due":                    dueText(job.Due),
		"customer_phone_type":    yesNo(job.CustomerPhoneType),
		"customer_physical_type": yesNo(job.CustomerPhysicalType),
		"town":                   job.Town,
		"notification_type":      notificationType,
	}
}
