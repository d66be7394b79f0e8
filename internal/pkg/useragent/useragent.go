// Package useragent classifies raw User-Agent strings into the browser, OS
// and device type attributes recorded on click events.
package useragent

import (
	_ "embed"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// UserAgent is the classification result for one raw header value.
type UserAgent struct {
	UserAgent  string
	Browser    string
	OS         string
	DeviceType string
	Bot        bool
}

// Device type values
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

//go:embed rules.yml
var rulesFile []byte

// ruleEntry is one regex/name pair from the rules database.
type ruleEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type rulesDatabase struct {
	Browsers []ruleEntry `yaml:"browsers"`
	OSs      []ruleEntry `yaml:"oss"`
	Bots     []ruleEntry `yaml:"bots"`
}

// Compiled regex cache
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	// Double-check pattern
	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// Global parser instance
var (
	parser *classifier
	once   sync.Once
)

type classifier struct {
	rules rulesDatabase
	cache *regexCache
}

func getClassifier() *classifier {
	once.Do(func() {
		parser = &classifier{cache: newRegexCache()}
		// A broken rules file degrades to empty rule sets; Classify then
		// returns Unknown for everything instead of failing the caller.
		_ = yaml.Unmarshal(rulesFile, &parser.rules)
	})
	return parser
}

func (c *classifier) matchFirst(entries []ruleEntry, userAgent string) string {
	for _, entry := range entries {
		if regex, err := c.cache.get(entry.Regex); err == nil {
			if regex.MatchString(userAgent) {
				return entry.Name
			}
		}
	}
	return ""
}

// deviceTypeFor classifies the device from user agent patterns. Tablet
// indicators are checked first because tablet UAs often contain "Mobile" too.
func deviceTypeFor(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")) {
		return DeviceTablet
	}

	if strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipod") || strings.Contains(ua, "android") ||
		strings.Contains(ua, "blackberry") || strings.Contains(ua, "windows phone") {
		return DeviceMobile
	}

	if strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") ||
		strings.Contains(ua, "x11") || strings.Contains(ua, "linux") ||
		strings.Contains(ua, "cros") {
		return DeviceDesktop
	}

	return DeviceUnknown
}

// Classify parses a raw User-Agent header into browser, OS, device type and
// bot attributes. It never fails: unmatched inputs come back as Unknown.
func Classify(userAgent string) UserAgent {
	c := getClassifier()

	result := UserAgent{
		UserAgent:  userAgent,
		Browser:    "Unknown",
		OS:         "Unknown",
		DeviceType: DeviceUnknown,
	}

	if userAgent == "" {
		return result
	}

	if bot := c.matchFirst(c.rules.Bots, userAgent); bot != "" {
		result.Browser = bot
		result.Bot = true
		return result
	}

	if browser := c.matchFirst(c.rules.Browsers, userAgent); browser != "" {
		result.Browser = browser
	}
	if os := c.matchFirst(c.rules.OSs, userAgent); os != "" {
		result.OS = os
	}
	result.DeviceType = deviceTypeFor(userAgent)

	return result
}
