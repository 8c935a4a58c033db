package generator

import "fmt"

// formatGenerators implements spec §6.3's fixed format generator table.
var formatGenerators = map[string]func(s *Source) string{
	"email":     genEmail,
	"uri":       genURI,
	"date-time": genDateTime,
	"date":      genDate,
	"time":      genTime,
	"uuid":      genUUID,
	"ipv4":      genIPv4,
	"ipv6":      genIPv6,
	"hostname":  genHostname,
	"objectId":  genHexString24,
	"regex":     genRegexLiteral,
	"decimal128": genDecimalLiteral,
}

var emailDomains = []string{"example.com", "mail.test", "corp.example", "service.io"}
var uriProtocols = []string{"https", "http"}
var uriPaths = []string{"/", "/items", "/api/v1/resource", "/docs/index"}
var hostnamePrefixes = []string{"host", "node", "svc", "web"}
var hostnameSuffixes = []string{"internal", "cluster.local", "prod.example.com"}

func genEmail(s *Source) string {
	return fmt.Sprintf("name%d@%s", s.IntN(100000), emailDomains[s.IntN(len(emailDomains))])
}

func genURI(s *Source) string {
	return fmt.Sprintf("%s://%s%s", uriProtocols[s.IntN(len(uriProtocols))],
		emailDomains[s.IntN(len(emailDomains))], uriPaths[s.IntN(len(uriPaths))])
}

func genDateTime(s *Source) string {
	year := 2000 + s.IntN(26)
	month := 1 + s.IntN(12)
	day := 1 + s.IntN(28)
	hour := s.IntN(24)
	minute := s.IntN(60)
	second := s.IntN(60)
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.000Z", year, month, day, hour, minute, second)
}

func genDate(s *Source) string {
	year := 2000 + s.IntN(26)
	month := 1 + s.IntN(12)
	day := 1 + s.IntN(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func genTime(s *Source) string {
	return fmt.Sprintf("%02d:%02d:%02d", s.IntN(24), s.IntN(60), s.IntN(60))
}

func genUUID(s *Source) string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = byte(s.IntN(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func genIPv4(s *Source) string {
	return fmt.Sprintf("%d.%d.%d.%d", s.IntN(256), s.IntN(256), s.IntN(256), s.IntN(256))
}

func genIPv6(s *Source) string {
	groups := make([]interface{}, 8)
	for i := range groups {
		groups[i] = s.IntN(65536)
	}
	return fmt.Sprintf("%x:%x:%x:%x:%x:%x:%x:%x", groups...)
}

func genHostname(s *Source) string {
	return fmt.Sprintf("%s%d.%s", hostnamePrefixes[s.IntN(len(hostnamePrefixes))], s.IntN(1000),
		hostnameSuffixes[s.IntN(len(hostnameSuffixes))])
}

func genHexString24(s *Source) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 24)
	for i := range out {
		out[i] = hex[s.IntN(16)]
	}
	return string(out)
}

func genRegexLiteral(s *Source) string {
	return "^" + genPattern(`\w+`, s) + "$"
}

func genDecimalLiteral(s *Source) string {
	return fmt.Sprintf("%d.%02d", s.IntN(100000), s.IntN(100))
}
