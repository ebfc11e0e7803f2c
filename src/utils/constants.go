package utils

const ShortDashDateLayout = "2006-01-02"

// DaysInShortTermWindow is the longest holding period, in days, that is still
// taxed as short term.
const DaysInShortTermWindow = 365

const (
	DailyBucketMaxDays  = 90
	WeeklyBucketMaxDays = 365
)
