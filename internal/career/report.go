// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package career

import (
	"strings"
)

const reportTemplate = `请按照以下结构生成职业规划报告：

### 1. 执行摘要 (Executive Summary)
- 简要概述用户当前状况和主要建议
- 突出最重要的职业发展方向

### 2. 个人档案分析 (Personal Profile Analysis)
- 分析用户的背景、优势和特点
- 识别核心竞争力

### 3. 职业方向推荐 (Career Direction Recommendations)
- 推荐至少 3 个具体职位
- 每个职位包含：职位名称、所属行业、薪资范围、市场需求程度、职位描述、任职要求

### 4. 行业分析 (Industry Analysis)
- 分析推荐行业的市场趋势
- 提供数据支持的未来展望

### 5. 技能差距分析 (Skill Gap Analysis)
- 对比当前技能与目标职位要求
- 识别需要提升的关键技能

### 6. 学习路径 (Learning Path)
- 分类列出学习资源（免费/付费）
- 每个资源包含：名称、类型、链接（如有）、预计学习时间、优先级

### 7. 技术栈推荐 (Technology Stack Recommendations)
- 推荐需要学习的技术
- 每项技术包含：类别、名称、推荐理由、预计学习时间

### 8. 时间线和里程碑 (Timeline and Milestones)
- 短期目标（0-6个月）
- 中期目标（6-18个月）
- 长期目标（18个月以上）
- 每个里程碑包含：目标、时间范围、关键行动

### 9. 行动项 (Action Items)
- 列出优先级排序的具体行动
- 每个行动包含：优先级（1-5）、具体行动、截止时间、预期成果

请确保报告内容具体、可操作，并根据用户的实际情况进行个性化定制。`

// ReportPrompt builds the report request from the collected answers. Stages
// without an answer are marked as not provided.
func ReportPrompt(answers map[int]string) string {
	var b strings.Builder
	b.WriteString("请根据以下用户信息生成一份详细的职业规划报告：\n\n")
	b.WriteString("## 用户信息\n\n")
	for i, st := range stages {
		answer := strings.TrimSpace(answers[i])
		if answer == "" {
			answer = "未提供"
		}
		b.WriteString("### ")
		b.WriteString(st.Name)
		b.WriteString("\n")
		b.WriteString(answer)
		b.WriteString("\n\n")
	}
	b.WriteString("\n## 报告要求\n\n")
	b.WriteString(reportTemplate)
	return b.String()
}

const completionText = "✅ 信息收集完成！\n\n" +
	"感谢您的耐心回答！我正在根据您提供的信息生成个性化职业规划报告，" +
	"报告将包含职位推荐、技能发展路径、学习资源等内容。\n\n---\n\n"
