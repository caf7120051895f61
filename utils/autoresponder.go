package utils

import (
	"strings"
	"time"

	"casalink/models"
)

// keywordRule maps a group of keywords to one canned response. The table is
// an ordered slice: evaluation is first-match-wins, so a message matching
// several groups always gets the earliest one.
type keywordRule struct {
	keywords []string
	response string
}

var keywordRules = []keywordRule{
	{
		keywords: []string{"valor", "preço", "preco", "quanto custa", "custo"},
		response: "O valor do imóvel está disponível na página de detalhes. Posso conectar você com um corretor para mais informações!",
	},
	{
		keywords: []string{"entrada", "parcela", "financiamento", "financiar"},
		response: "Trabalhamos com diversas opções de financiamento. Um corretor entrará em contato para apresentar as melhores condições.",
	},
	{
		keywords: []string{"visita", "visitar", "agendar", "conhecer"},
		response: "Podemos agendar uma visita presencial ou virtual. Qual horário seria melhor para você?",
	},
	{
		keywords: []string{"disponível", "disponivel", "vendido", "ainda"},
		response: "Para confirmar a disponibilidade atual, um de nossos corretores entrará em contato em breve.",
	},
	{
		keywords: []string{"foto", "fotos", "imagem", "imagens"},
		response: "Temos uma galeria completa de fotos do imóvel disponível no site. Quer que eu envie o link?",
	},
}

// IsBusinessHours reports whether t falls inside the configured window:
// Monday through Friday, start <= hour < end, in the server's local time.
func IsBusinessHours(t time.Time, start, end int) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return start <= t.Hour() && t.Hour() < end
}

// AutoResponse returns the canned reply for an inbound widget message, or
// "" when no reply should be sent. At most one reply is ever produced per
// inbound message and the function has no side effects.
func AutoResponse(content string, bot models.BotSettings) string {
	return AutoResponseAt(content, bot, time.Now())
}

// AutoResponseAt is AutoResponse with an explicit reference time
func AutoResponseAt(content string, bot models.BotSettings, now time.Time) string {
	if !bot.Enabled {
		return ""
	}

	text := strings.ToLower(content)
	for _, rule := range keywordRules {
		for _, k := range rule.keywords {
			if strings.Contains(text, k) {
				return rule.response
			}
		}
	}

	if bot.AwayEnabled && !IsBusinessHours(now, bot.BusinessStart, bot.BusinessEnd) {
		return bot.AwayMessage
	}

	return ""
}
