package moderation

import "fmt"

func ritualOpenedNotice(user string, count int) string {
	return fmt.Sprintf("🚨 @%s has %d warnings. A moderator can confirm the ban with !confirmban %s within 2 minutes.", user, count, user)
}

func ritualExpiredNotice(user string) string {
	return fmt.Sprintf("⌛ Ban confirmation for @%s expired. No action was taken.", user)
}

func ritualReEligibleNotice(user string) string {
	return fmt.Sprintf("🔁 @%s can be escalated again if needed.", user)
}

// SweepNotice is the broadcast text after a retention sweep.
func SweepNotice(removed int) string {
	if removed == 0 {
		return "🔄 Auto-clear finished."
	}
	return fmt.Sprintf("🔄 Auto-clear finished: %d old warnings removed.", removed)
}
