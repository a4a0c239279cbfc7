package providers

// EstimateTokens estimates the token count of a message list without
// calling a provider. The heuristic is ceil(totalTextChars / 4), counting
// text parts only. Good enough for routing and cost estimates; real usage
// numbers come back from the provider.
func EstimateTokens(messages []Message) int {
	chars := 0
	for i := range messages {
		chars += len(messages[i].Text())
	}
	return (chars + 3) / 4
}
