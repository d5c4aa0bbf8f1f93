package twofa

// Config carries the deployment-level parameters of the two-factor engine.
// The encryption key protects TOTP secrets at rest; the pepper keys the
// recovery code digests. Both are secrets and must come from the
// environment, never from source.
type Config struct {
	Issuer        string `env:"TWOFA_ISSUER" envDefault:"PlantOps"`
	EncryptionKey string `env:"TWOFA_ENCRYPTION_KEY,required"`
	// RecoveryPepper is deployment configuration, not a code constant:
	// rotating it invalidates all outstanding recovery codes at once.
	RecoveryPepper string `env:"TWOFA_RECOVERY_PEPPER,required"`
}
