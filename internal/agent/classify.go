// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package agent

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Route names the behavior a message is dispatched to.
type Route string

const (
	RouteCareerCancel Route = "career_cancel"
	RouteCareerAnswer Route = "career_answer"
	RouteCareerStart  Route = "career_start"
	RouteWeather      Route = "weather"
	RouteGeneral      Route = "general"
)

var cancelCommands = []string{"取消", "cancel", "/cancel", "退出面试", "结束面试", "quit", "exit", "stop"}

var careerTriggers = []string{
	"职业规划", "职业发展", "职业建议", "生涯规划", "规划职业",
	"career planning", "career plan", "career advice", "career development",
	"plan my career", "regulate career",
	"转行", "跳槽", "找工作", "换工作",
}

var weatherKeywords = []string{
	"天气", "weather", "温度", "气温", "下雨", "下雪", "预报", "forecast",
	"湿度", "humidity", "多少度", "带伞", "穿什么", "气候", "climate",
}

// KnownCities are recognized as a weather query when sent on their own.
var KnownCities = []string{
	"北京", "上海", "广州", "深圳", "杭州", "南京", "成都", "重庆",
	"武汉", "西安", "苏州", "天津", "青岛", "大连", "厦门", "长沙",
	"Beijing", "Shanghai", "Guangzhou", "Shenzhen", "Hangzhou",
	"Tokyo", "New York", "London", "Paris", "Sydney",
}

var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:查询|查|看|告诉我|帮我查|想知道|了解)(?:一下)?(.+?)(?:的)?(?:天气|气温|温度|预报)`),
	regexp.MustCompile(`(.+?)(?:的)?(?:天气|气温|温度|预报)(?:怎么样|如何|怎样|好不好)?`),
	regexp.MustCompile(`(?:天气|气温|温度|预报)(?:查询)?[：:]*(.+)`),
	regexp.MustCompile(`(?i)weather (?:in |of |for )?(.+)`),
	regexp.MustCompile(`(?i)(.+?) weather`),
}

var (
	punctuation = regexp.MustCompile(`[？?！!。，,.、~～]`)
	fillers     = regexp.MustCompile(`^(?:请问|请|帮我|给我|我想|想|你好|嗨)+`)
	enFillers   = regexp.MustCompile(`(?i)^(?:(?:what's|what|how's|how|is|will|it|the|like|in|at|for|of)\b\s*)+`)
	timeWords   = regexp.MustCompile(`^(?:今天|明天|后天|今晚|现在|最近|这周|本周|下周|周末|这几天|未来几天)+|(?:今天|明天|后天|今晚|现在|最近|这周|本周|下周|周末|这几天|未来几天)+$`)
	questionEnd = regexp.MustCompile(`(?:怎么样|如何|怎样|好不好|呢|吗|啊|呀)+$`)
	today       = regexp.MustCompile(`(?i)^(?:today|tomorrow|now)$`)
)

const maxCityRunes = 20

// IsCancelCommand reports whether msg asks to leave the career interview.
func IsCancelCommand(msg string) bool {
	m := strings.ToLower(strings.TrimSpace(punctuation.ReplaceAllString(msg, "")))
	return slices.Contains(cancelCommands, m)
}

// IsCareerTrigger reports whether msg asks for a career planning interview.
func IsCareerTrigger(msg string) bool {
	return containsAny(strings.ToLower(msg), careerTriggers)
}

// HasWeatherKeyword reports whether msg mentions weather.
func HasWeatherKeyword(msg string) bool {
	return containsAny(strings.ToLower(msg), weatherKeywords)
}

// ExtractCity pulls a city name out of a weather question. It returns ""
// when no plausible name is found.
func ExtractCity(msg string) string {
	msg = strings.TrimSpace(msg)
	for _, re := range cityPatterns {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if city := cleanCity(m[1]); city != "" {
			return city
		}
	}

	lower := strings.ToLower(msg)
	for _, city := range KnownCities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city
		}
	}
	return ""
}

func cleanCity(raw string) string {
	city := strings.TrimSpace(punctuation.ReplaceAllString(raw, ""))
	city = fillers.ReplaceAllString(city, "")
	city = enFillers.ReplaceAllString(city, "")
	city = timeWords.ReplaceAllString(city, "")
	city = questionEnd.ReplaceAllString(city, "")
	city = strings.TrimSuffix(strings.TrimSpace(city), "的")
	city = strings.TrimSpace(city)
	if city == "" || today.MatchString(city) || HasWeatherKeyword(city) {
		return ""
	}
	if utf8.RuneCountInString(city) > maxCityRunes {
		return ""
	}
	return city
}

// IsPlaceName reports whether msg on its own names a place: a known city, or
// a short Han name ending in 市 or 县.
func IsPlaceName(msg string) bool {
	m := strings.TrimSpace(punctuation.ReplaceAllString(msg, ""))
	if m == "" {
		return false
	}
	for _, city := range KnownCities {
		if strings.EqualFold(m, city) {
			return true
		}
	}

	n := utf8.RuneCountInString(m)
	if n < 2 || n > 8 || !(strings.HasSuffix(m, "市") || strings.HasSuffix(m, "县")) {
		return false
	}
	for _, r := range m {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
