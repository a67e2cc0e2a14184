// Package wellknown maps common service names to their protocol and port,
// so approvals that name a service ("https") instead of a port ("443") still
// resolve to a concrete service object.
package wellknown

import (
	"fmt"
	"strings"
)

type ServiceEntry struct {
	Protocol string
	Port     string
}

var serviceRegistry = map[string][]ServiceEntry{
	"FTP":      {{Protocol: "tcp", Port: "21"}},
	"SSH":      {{Protocol: "tcp", Port: "22"}},
	"TELNET":   {{Protocol: "tcp", Port: "23"}},
	"SMTP":     {{Protocol: "tcp", Port: "25"}},
	"DNS":      {{Protocol: "tcp", Port: "53"}, {Protocol: "udp", Port: "53"}},
	"DOMAIN":   {{Protocol: "tcp", Port: "53"}, {Protocol: "udp", Port: "53"}},
	"HTTP":     {{Protocol: "tcp", Port: "80"}},
	"KERBEROS": {{Protocol: "tcp", Port: "88"}, {Protocol: "udp", Port: "88"}},
	"NTP":      {{Protocol: "udp", Port: "123"}},
	"SNMP":     {{Protocol: "udp", Port: "161"}},
	"LDAP":     {{Protocol: "tcp", Port: "389"}, {Protocol: "udp", Port: "389"}},
	"HTTPS":    {{Protocol: "tcp", Port: "443"}},
	"SYSLOG":   {{Protocol: "udp", Port: "514"}},
	"LDAPS":    {{Protocol: "tcp", Port: "636"}},
	"MSSQL":    {{Protocol: "tcp", Port: "1433"}},
	"MYSQL":    {{Protocol: "tcp", Port: "3306"}},
	"RDP":      {{Protocol: "tcp", Port: "3389"}},
	"POSTGRES": {{Protocol: "tcp", Port: "5432"}},
}

// Get returns the registry entries for a service name, case-insensitively.
func Get(name string) ([]ServiceEntry, bool) {
	entries, ok := serviceRegistry[strings.ToUpper(strings.TrimSpace(name))]
	return entries, ok
}

// CanonicalName is the naming convention for service objects created during
// approvals, e.g. "TCP-443".
func CanonicalName(protocol, port string) string {
	if protocol == "" {
		protocol = "tcp"
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(protocol), port)
}
