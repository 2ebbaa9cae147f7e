// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package career

import (
	"fmt"
	"math"
	"strings"
)

// Stage is one fixed interview question.
type Stage struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Question string `json:"question"`
	Example  string `json:"example"`
}

var stages = [StageCount]Stage{
	{
		Key:      "basic_info",
		Name:     "基本信息",
		Question: "请介绍一下您的基本情况，包括年龄、学历、专业背景等。",
		Example:  "例如：我今年25岁，本科毕业于XX大学计算机专业，目前在一家互联网公司工作。",
	},
	{
		Key:      "interests",
		Name:     "兴趣爱好",
		Question: "您对哪些领域或技术方向感兴趣？平时喜欢做什么？",
		Example:  "例如：我对人工智能和数据分析很感兴趣，平时喜欢研究新技术和参加技术社区活动。",
	},
	{
		Key:      "skills",
		Name:     "技能水平",
		Question: "请描述一下您目前掌握的技能，包括编程语言、工具、框架等。",
		Example:  "例如：熟练掌握Python和Java，了解React和Vue，使用过MySQL和MongoDB数据库。",
	},
	{
		Key:      "experience",
		Name:     "工作经验",
		Question: "请介绍一下您的工作或项目经验。",
		Example:  "例如：有3年后端开发经验，主要负责电商系统的订单模块，参与过微服务架构改造项目。",
	},
	{
		Key:      "goals",
		Name:     "职业目标",
		Question: "您的职业目标是什么？希望在未来3-5年达到什么样的职位或状态？",
		Example:  "例如：希望3年内成为技术专家或团队负责人，5年内能够独立带领团队完成大型项目。",
	},
	{
		Key:      "preferences",
		Name:     "工作偏好",
		Question: "您对工作有什么偏好？比如工作地点、公司类型、薪资期望、工作强度等。",
		Example:  "例如：希望在一线城市工作，偏好大厂或独角兽公司，期望年薪30万以上，能接受适度加班。",
	},
}

// Stages returns the interview questions in order.
func Stages() []Stage {
	return stages[:]
}

// StageAt returns stage i. It panics if i is out of range.
func StageAt(i int) Stage {
	return stages[i]
}

const welcomeText = "🎯 欢迎使用职业规划服务！\n\n" +
	"我会通过 6 个问题了解您的情况，然后为您生成一份个性化的职业规划报告。" +
	"回答越详细，报告越有针对性。随时输入「取消」可以退出。\n\n"

// ProgressBar renders the answered-stage bar, e.g. "进度: [██░░░░] 33% (2/6)".
func ProgressBar(answered int) string {
	answered = max(0, min(answered, StageCount))
	pct := int(math.Round(float64(answered) * 100 / StageCount))
	return fmt.Sprintf("进度: [%s%s] %d%% (%d/%d)",
		strings.Repeat("█", answered), strings.Repeat("░", StageCount-answered),
		pct, answered, StageCount)
}

// StagePrompt renders the question shown for stage i.
func StagePrompt(i int) string {
	st := StageAt(i)
	var b strings.Builder
	fmt.Fprintf(&b, "**问题 %d/%d** · %s\n\n", i+1, StageCount, st.Name)
	b.WriteString(st.Question)
	b.WriteString("\n\n> ")
	b.WriteString(st.Example)
	b.WriteString("\n\n")
	b.WriteString(ProgressBar(i))
	return b.String()
}
