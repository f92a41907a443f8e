package chat

const rule = "==========================================="

var welcomeBanner = []string{
	"Server: Welcome to chat",
	rule,
	"To register:    REGISTER <login> <password>",
	"To login:       LOGIN    <login> <password>",
	rule,
}

var lobbyBanner = []string{
	"Server: you are in the lobby.",
	"Server: available commands:",
	rule,
	"  CHAT  <login>   - start chat with user",
	"  LIST            - show online users",
	"  LOGOUT          - log out",
	rule,
}

func chatBanner(peer string) []string {
	return []string{
		rule,
		"  Chat with " + peer,
		rule,
		"Type /exit           - back to lobby",
		"Type /history <N>    - show last N messages",
		"Type /who            - show chat partner",
		"-------------------------------------------",
	}
}

func postAll(s *Session, lines []string) {
	for _, line := range lines {
		s.post(line)
	}
}
