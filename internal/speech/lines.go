// Lines centralises every spoken string.
// Edit this file to change the host's script. The tone instruction is
// prepended by the speaker, so lines here are plain sentences.
package speech

import "github.com/hammamikhairi/mysteryhost/internal/domain"

// ── Countdown alerts ─────────────────────────────────────────────

func LineOneMinute() string {
	return "마지막 1분 남았습니다. 서둘러 결론을 내주세요."
}

func LineTimeUp() string {
	return "시간이 모두 종료되었습니다. 게임을 멈춰주세요."
}

// ── Phase presets ────────────────────────────────────────────────

func LineDiscussion() string {
	return "지금은 공개 토론 시간입니다. 자유롭게 의견을 나누고 단서를 조합해 보세요."
}

func LineVote() string {
	return "마지막 최종 정리 및 투표 시간입니다. 최후의 변론을 준비하고 투표를 시작해 주세요."
}

// PresetLine returns the script for a phase preset.
func PresetLine(p domain.Preset) (string, bool) {
	switch p {
	case domain.PresetDiscussion:
		return LineDiscussion(), true
	case domain.PresetVote:
		return LineVote(), true
	default:
		return "", false
	}
}

// PresetLines returns every fixed line, for cache warm-up.
func PresetLines() []string {
	return []string{LineOneMinute(), LineTimeUp(), LineDiscussion(), LineVote()}
}
