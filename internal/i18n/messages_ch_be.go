package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Transient notices
	"notice.short_track": "- Dr Track isch chürzer als **%d Sekunde**. Wird übersprunge.",
	"notice.stuck":       "- Dr Track hanget sit %dms. Wird übersprunge...",
	"notice.move_failed": "- Ha nid chönne i dä nöi Channel wächsle. Dr Player wird abbroche.",
	"notice.moved":       "- Vo **%s** uf **%s** gwächslet.",
	"notice.moved_out":   "- Me het mi usegrüehrt. Dr Player wird abbroche.",
	"notice.queue_empty": "Kei Lieder meh i dr Warteschlange. I verlah dr Voice-Channel.",

	// Now playing card
	"status.heading":           "Lauft grad",
	"status.description":       "**[%s](%s)** vo **%s**",
	"status.requested_by":      "Usgwählt vo",
	"status.duration":          "Dauer",
	"status.live":              "Live",
	"status.footer":            "Autoplay - %s ⁠・ Lutstärchi - %d%% ⁠・ Warteschlange - %d",
	"status.enabled":           "Ii",
	"status.disabled":          "Us",
	"status.unknown_requester": "Unbekannt",
}
