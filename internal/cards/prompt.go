package cards

import (
	"fmt"
	"strings"
)

// SystemPrompt sets the assistant's role for every generation request.
const SystemPrompt = "你是一个专业的Anki卡片制作助手，擅长根据学习笔记生成高质量的问答对。"

// CardPrompt is the user message template. {note_content}, {num_cards} and
// {difficulty} are substituted by BuildPrompt.
const CardPrompt = `请根据下面的学习笔记，生成{num_cards}问答对，用于 Anki 间隔重复复习。

要求：
1. 难度：{difficulty}
2. 每个问题只考察一个知识点，表述具体、清晰，脱离笔记也能看懂
3. 答案准确、简洁，必要时可以分多行
4. 不要编造笔记中没有的内容
5. 严格使用以下格式输出，问答对之间空一行，不要输出任何其他内容：

Q: 问题
A: 答案

学习笔记：
---
{note_content}
---`

// AutoCountPhrase asks the model to pick the number of cards itself.
const AutoCountPhrase = "合适数量的（根据内容丰富度决定，问题不能太碎，也不能太宽泛）"

// BuildPrompt fills CardPrompt. A count of 0 lets the model decide how many
// cards to write.
func BuildPrompt(content string, count int, difficulty string) string {
	countPhrase := AutoCountPhrase
	if count > 0 {
		countPhrase = fmt.Sprintf("%d 个", count)
	}
	return strings.NewReplacer(
		"{note_content}", content,
		"{num_cards}", countPhrase,
		"{difficulty}", difficulty,
	).Replace(CardPrompt)
}
