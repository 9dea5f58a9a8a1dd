package booking

// Translator levels as stored in user meta.
const (
	LevelCertified       = "Certified"
	LevelCertifiedLaw    = "Certified with specialisation in law"
	LevelCertifiedHealth = "Certified with specialisation in health care"
	LevelLayman          = "Layman"
	LevelCourses         = "Read Translation courses"
)

// Translator types as stored in user meta.
const (
	TranslatorProfessional = "professional"
	TranslatorRWS          = "rwstranslator"
	TranslatorVolunteer    = "volunteer"
)

var translatorTypeFor = map[JobType]string{
	JobTypePaid:   TranslatorProfessional,
	JobTypeRWS:    TranslatorRWS,
	JobTypeUnpaid: TranslatorVolunteer,
}

var levelsFor = map[string][]string{
	"":               {LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth, LevelLayman, LevelCourses},
	CertifiedBoth:    {LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth, LevelLayman, LevelCourses},
	CertifiedYes:     {LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth},
	CertifiedLaw:     {LevelCertifiedLaw},
	CertifiedNLaw:    {LevelCertifiedLaw},
	CertifiedHealth:  {LevelCertifiedHealth},
	CertifiedNHealth: {LevelCertifiedHealth},
	CertifiedNormal:  {LevelLayman, LevelCourses},
}

// IsEligible reports whether the translator qualifies for the offered job.
// It has no side effects and reads nothing beyond its arguments.
func IsEligible(offer Offer, t *User) bool {
	job := offer.Job
	if job == nil || t == nil {
		return false
	}

	if want, ok := translatorTypeFor[job.JobType]; !ok || t.Meta.TranslatorType != want {
		return false
	}

	if !levelAllowed(job.Certified, t.Meta.TranslatorLevel) {
		return false
	}

	if !t.Speaks(job.FromLanguageID) {
		return false
	}

	if job.Gender != "" && job.Gender != t.Meta.Gender {
		return false
	}

	if containsID(offer.Blacklist, t.ID) {
		return false
	}

	if job.PhysicalOnly() && !overlaps(offer.CustomerTowns, t.TownIDs) {
		return false
	}

	return true
}

func levelAllowed(certified, level string) bool {
	for _, l := range levelsFor[certified] {
		if l == level {
			return true
		}
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func overlaps(a, b []int64) bool {
	for _, v := range a {
		if containsID(b, v) {
			return true
		}
	}
	return false
}
