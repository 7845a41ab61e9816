package shared

const (
	UserID    = "user_id"
	UserEmail = "user_email"

	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
	QuestStatusExpired   = "expired"

	ProofBucketPrefix = "quest-proofs"

	WebhookSecretHeader = "X-Webhook-Secret"
)
