package messaging

// Subjects used when forwarding feeds to a broker.
const (
	SubjectSecurityAlerts  = "securityd.alerts"
	SubjectConsentRequests = "securityd.privacy.consent_requests"
	SubjectAccessEvents    = "securityd.monitor.access"
)

// Subject joins a prefix and a subject with a dot. An empty prefix returns subject.
func Subject(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}
