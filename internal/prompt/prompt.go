// Package prompt holds the prompt catalog for every reasoning service.
//
// Templates build []llm.Message values; no prompt text lives anywhere
// else in the codebase. Wording here is deliberately plain: response
// quality tuning happens against a prompt-evaluation harness, not in
// this repository.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/eirene/internal/llm"
)

// Stage instructions, keyed by stage name. The composer falls back to
// DefaultInstruction for anything unmapped.
var stageInstructions = map[string]string{
	"SETTING": "This is the rapport-building stage. Help the client feel " +
		"safe and oriented. Ask open questions about daily life and listen " +
		"without steering toward difficult topics.",
	"PERCEPTION": "This is the perception stage. Gently help the client " +
		"notice and name what they are experiencing, without judging or " +
		"reframing it for them.",
	"EMOTION": "This is the emotion stage. Invite the client to stay with " +
		"and express the feelings behind what they describe. Validate before " +
		"exploring.",
	"ACCEPTANCE": "This is the acceptance stage. Support the client in " +
		"making room for difficult thoughts and feelings rather than " +
		"fighting them. Do not rush toward resolution.",
	"REMINISCENCE": "This is the reminiscence stage. Guide the client " +
		"through meaningful memories of their life, drawing out the values " +
		"and relationships those memories carry.",
}

// DefaultInstruction is used for unknown or unmapped stage names.
const DefaultInstruction = "Respond as a warm, attentive counselor. Listen " +
	"carefully, reflect what you hear, and keep the client's wellbeing at " +
	"the center of the conversation."

// StageInstruction returns the composition instruction for a stage
// name, falling back to DefaultInstruction.
func StageInstruction(stage string) string {
	if instr, ok := stageInstructions[strings.ToUpper(stage)]; ok {
		return instr
	}
	return DefaultInstruction
}

// Composer builds the final streamed completion prompt.
func Composer(instruction, specialistBlock, userInfo, history, query string) []llm.Message {
	system := fmt.Sprintf(`You are a counselor for older adults in a structured counseling program.

%s

What we know about this client:
%s

Specialist input for this turn:
%s`, instruction, section(userInfo), section(specialistBlock))

	user := fmt.Sprintf(`Recent conversation:
%s

Client: %s`, section(history), query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// Routing prompts, one per specialist capability. Each classifier
// answers a single binary digit.
var routingPrompts = map[string]string{
	"medical": "health, symptoms, medication, pain, sleep, or anything a " +
		"clinician should weigh in on",
	"legacy": "wills, inheritance, belongings, or what the client wants to " +
		"leave behind for family",
	"cultural": "traditions, rituals, faith, or culturally specific views " +
		"on aging and death",
	"acp": "advance care planning: future medical decisions, caregivers, " +
		"or end-of-life wishes",
}

// RoutingPrompt returns the relevance description for a capability id.
func RoutingPrompt(id string) string {
	return routingPrompts[id]
}

// Router builds one binary relevance classification prompt.
func Router(capabilityPrompt, history, query string) []llm.Message {
	system := fmt.Sprintf(`You decide whether a specialist should be consulted for the client's message.
The specialist covers: %s.

Answer with a single digit: 1 if the specialist is relevant to the message, 0 if not. No other text.`, capabilityPrompt)

	user := fmt.Sprintf(`Recent conversation:
%s

Client: %s`, section(history), query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// Specialist system prompts, keyed by capability id.
var specialistPrompts = map[string]string{
	"medical": "You are a geriatric health specialist supporting a " +
		"counselor. Using the reference material and what is known about " +
		"the client, give the counselor a short, factual note on the " +
		"medical aspects of the client's message. Do not address the " +
		"client directly.",
	"legacy": "You are a legacy-planning specialist supporting a " +
		"counselor. Using the reference material and what is known about " +
		"the client, give the counselor a short note on the inheritance or " +
		"legacy aspects of the client's message.",
	"cultural": "You are a cultural specialist supporting a counselor. " +
		"Give the counselor a short note on the cultural or spiritual " +
		"dimensions of the client's message, respecting the client's own " +
		"framing.",
	"acp": "You are an advance-care-planning specialist supporting a " +
		"counselor. Give the counselor a short note on the care-planning " +
		"aspects of the client's message.",
}

// Specialist builds one specialist consultation prompt. reference is
// the joined retrieval context and may be empty for specialists with no
// knowledge source.
func Specialist(id, reference, userInfo, history, query string) []llm.Message {
	system := specialistPrompts[id]
	if system == "" {
		system = "You are a specialist supporting a counselor. Give the " +
			"counselor a short note on your domain's view of the client's message."
	}

	user := fmt.Sprintf(`Reference material:
%s

What we know about this client:
%s

Recent conversation:
%s

Client: %s`, section(reference), section(userInfo), section(history), query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// Monitor builds the per-turn stage advancement classification prompt.
func Monitor(stage, history, query string) []llm.Message {
	system := fmt.Sprintf(`You monitor a structured counseling program. The client is currently in the %s stage.

Decide whether the client is ready to move to the next stage based on the conversation.

Answer with a single digit: 1 if ready, 0 if not. No other text.`, stage)

	user := fmt.Sprintf(`Recent conversation:
%s

Client: %s`, section(history), query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// Escalation builds the safety risk classification prompt.
func Escalation(query, history string) []llm.Message {
	system := `You screen counseling messages for acute risk: self-harm, harm to others, or a medical emergency.

Answer with a single digit: 1 if the message indicates acute risk needing immediate human intervention, 0 otherwise. No other text.`

	user := fmt.Sprintf(`Recent conversation:
%s

Client: %s`, section(history), query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// Summarize builds the short-term memory compression prompt.
func Summarize(history string) []llm.Message {
	system := `Summarize the following counseling conversation excerpt in a few sentences.
Keep facts about the client, their feelings, and any commitments made. Write in the third person.`

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: history},
	}
}

// ProbeQuestions is the fixed battery used for readiness scoring. Each
// item is scored independently against the client's accumulated
// long-term information.
var ProbeQuestions = []string{
	"Painful experiences and memories make it hard for the client to live a life they value.",
	"The client is afraid of their own feelings.",
	"The client worries about not being able to control their anxieties and feelings.",
	"The client's painful memories prevent them from living a fulfilling life.",
	"Emotions cause problems in the client's daily life.",
	"It seems to the client that most people handle their lives better than they do.",
	"The client's worries get in the way of their success.",
}

// Score builds one probe scoring prompt. The model rates how strongly
// the statement holds for the client, from 1 (never true) to 7 (always
// true).
func Score(userInfo, probe string) []llm.Message {
	system := `You rate how strongly a statement holds for a counseling client, based only on what is known about them.

Answer with a single digit from 1 (never true) to 7 (always true). No other text.`

	user := fmt.Sprintf(`What we know about this client:
%s

Statement: %s`, section(userInfo), probe)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

// ReadinessQuery is the long-term memory query used to collect clues
// for the readiness battery on session end.
const ReadinessQuery = "the client's inner expressions about distress, acceptance, and readiness for deeper work"

func section(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
