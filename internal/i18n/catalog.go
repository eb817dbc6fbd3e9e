package i18n

var catalog = map[string]map[string]string{
	"choose_language": {
		"id": "Pilih bahasa / Choose language:",
		"en": "Pilih bahasa / Choose language:",
	},
	"welcome": {
		"id": "{welcome_msg}\n\nUntuk mengakses ZONA RATED, kamu perlu mengajak {required} orang melalui link referral kamu.\n\nLink referral kamu:\n<code>{ref_link}</code>\n\nBagikan link di atas, lalu tekan Cek Persyaratan setelah selesai.",
		"en": "{welcome_msg}\n\nTo access ZONA RATED, you need to invite {required} people through your referral link.\n\nYour referral link:\n<code>{ref_link}</code>\n\nShare the link above, then press Check Requirements when done.",
	},
	"welcome_auto": {
		"id": "{welcome_msg}\n\nTidak ada syarat referral saat ini.\nKamu bisa langsung join ZONA RATED!\n\nTekan tombol di bawah:",
		"en": "{welcome_msg}\n\nNo referral requirement at this time.\nYou can join ZONA RATED right away!\n\nPress the button below:",
	},
	"welcome_default": {
		"id": "Selamat datang di ZONA RATED!",
		"en": "Welcome to ZONA RATED!",
	},

	"btn_share":           {"id": "Bagikan Link", "en": "Share Link"},
	"btn_check":           {"id": "Cek Persyaratan", "en": "Check Requirements"},
	"btn_join":            {"id": "Gabung Grup", "en": "Join Group"},
	"btn_join_supergroup": {"id": "Join ZONA RATED", "en": "Join ZONA RATED"},
	"btn_check_again":     {"id": "Cek Lagi", "en": "Check Again"},
	"btn_download":        {"id": "Download", "en": "Download"},
	"btn_open_link":       {"id": "Buka Link", "en": "Open Link"},
	"btn_affiliate_done":  {"id": "Sudah Dibuka", "en": "I Opened It"},
	"btn_watch":           {"id": "Tonton Video", "en": "Watch Video"},

	"referral_credited": {
		"id": "Seseorang bergabung melalui link kamu!\nProgress: {count}/{required}",
		"en": "Someone joined through your link!\nProgress: {count}/{required}",
	},
	"referral_complete": {
		"id": "SELAMAT!\n\nKamu sudah mencapai target referral ({count}/{required})!\nSemua syarat terpenuhi!\n\nKlik tombol untuk join ZONA RATED:",
		"en": "CONGRATULATIONS!\n\nYou've reached the referral target ({count}/{required})!\nAll requirements met!\n\nClick the button to join ZONA RATED:",
	},

	"not_registered": {
		"id": "Kamu belum terdaftar. Kirim /start dulu.",
		"en": "You are not registered. Send /start first.",
	},
	"verified_ready": {
		"id": "Verifikasi lengkap!\n\nReferral: {count}/{required} [OK]\nJoin Bot: Done\n\nPENTING:\n- Link berlaku {expiry_min} menit\n- Hanya bisa dipakai 1x\n- Klik segera!\n\nSetelah klik, kamu akan masuk ke ZONA RATED.",
		"en": "Verification complete!\n\nReferrals: {count}/{required} [OK]\nBot joined: Done\n\nIMPORTANT:\n- Link valid for {expiry_min} minutes\n- Can only be used once\n- Click immediately!\n\nAfter clicking, you will enter ZONA RATED.",
	},
	"not_verified": {
		"id": "Kamu belum memenuhi syarat.\n\nLengkapi langkah berikut:\n\nReferral: {count}/{required}\nBagikan link ini dan ajak {needed} orang lagi:\n<code>{ref_link}</code>\n\nJoin Bot: Done",
		"en": "You have not met the requirements.\n\nComplete the following steps:\n\nReferrals: {count}/{required}\nShare this link and invite {needed} more people:\n<code>{ref_link}</code>\n\nBot joined: Done",
	},
	"invite_created": {"id": "Link undangan dibuat!", "en": "Invite link created!"},
	"invite_failed":  {"id": "Gagal membuat link. Coba lagi.", "en": "Failed to create link. Try again."},
	"check_requirements_first": {
		"id": "Lengkapi syarat terlebih dahulu!",
		"en": "Complete the requirements first!",
	},

	"join_approved": {
		"id": "Join request disetujui!\n\nSelamat datang di ZONA RATED!\nNikmati koleksi video premium kami!",
		"en": "Join request approved!\n\nWelcome to ZONA RATED!\nEnjoy our premium video collection!",
	},
	"join_declined": {
		"id": "Join request ditolak.\n\nKemungkinan penyebab:\n{reasons}\n\nSilakan klik 'Cek Persyaratan' lagi di bot untuk mendapatkan link baru.",
		"en": "Join request declined.\n\nPossible reasons:\n{reasons}\n\nPlease click 'Check Requirements' again in the bot to get a new link.",
	},
	"reason_not_verified": {"id": "- Verifikasi belum lengkap", "en": "- Verification incomplete"},
	"reason_link_expired": {"id": "- Link sudah expired atau sudah dipakai", "en": "- Link expired or already used"},
	"reason_not_approved": {"id": "- Belum di-approve di sistem", "en": "- Not yet approved in the system"},

	"help_text": {
		"id": "Daftar Perintah:\n\n/start - Mulai dan daftar ke bot\n/status - Cek status verifikasi kamu\n/mylink - Lihat link referral kamu\n/help - Tampilkan bantuan ini",
		"en": "Commands:\n\n/start - Start and register\n/status - Check your verification status\n/mylink - View your referral link\n/help - Show this help",
	},
	"status_text": {
		"id": "Status Kamu:\n\nReferral: {count}/{required}\nJoin Bot: Sudah\nBergabung ZONA RATED: {sg_status}\nVerifikasi: {ver_status}\n\nLink referral kamu:\n<code>{ref_link}</code>",
		"en": "Your Status:\n\nReferrals: {count}/{required}\nBot joined: Done\nJoined ZONA RATED: {sg_status}\nVerification: {ver_status}\n\nYour referral link:\n<code>{ref_link}</code>",
	},
	"mylink_text": {
		"id": "Link referral kamu:\n\n<code>{ref_link}</code>\n\nBagikan link ini dan ajak orang untuk bergabung!\nProgress: {count}/{required}",
		"en": "Your referral link:\n\n<code>{ref_link}</code>\n\nShare this link and invite people to join!\nProgress: {count}/{required}",
	},
	"admin_approved_you": {
		"id": "Admin telah meng-approve akun kamu.\nKamu sekarang bisa join ZONA RATED!",
		"en": "Admin has approved your account.\nYou can now join ZONA RATED!",
	},
	"share_text": {
		"id": "Gabung ke Zona Rated! Klik link ini: {ref_link}",
		"en": "Join Zona Rated! Click this link: {ref_link}",
	},
	"fallback_registered": {
		"id": "Hai! Berikut yang bisa kamu lakukan:\n\nLink referral kamu:\n<code>{ref_link}</code>\n\nReferral: {count}/{required}",
		"en": "Hi! Here's what you can do:\n\nYour referral link:\n<code>{ref_link}</code>\n\nReferrals: {count}/{required}",
	},
	"fallback_new": {
		"id": "Hai! Tekan tombol di bawah untuk memulai.",
		"en": "Hi! Press the button below to get started.",
	},
	"maintenance": {
		"id": "Bot sedang dalam perbaikan.\nPerkiraan selesai: {until}\n\nSilakan coba lagi nanti.",
		"en": "The bot is under maintenance.\nEstimated end: {until}\n\nPlease try again later.",
	},
	"maintenance_unknown_end": {"id": "belum ditentukan", "en": "not set"},

	"yes":        {"id": "Ya", "en": "Yes"},
	"no":         {"id": "Tidak", "en": "No"},
	"complete":   {"id": "Lengkap", "en": "Complete"},
	"incomplete": {"id": "Belum", "en": "Incomplete"},

	"dl_not_registered": {
		"id": "Kamu belum terdaftar. Kirim /start ke @{bot} dulu.",
		"en": "You are not registered. Send /start to @{bot} first.",
	},
	"dl_not_verified": {
		"id": "Kamu belum memenuhi syarat untuk download.\n\nSelesaikan verifikasi terlebih dahulu di @{bot}.",
		"en": "You have not met the requirements to download.\n\nComplete verification first at @{bot}.",
	},
	"dl_affiliate_prompt": {
		"id": "Untuk mendownload video ini, buka link berikut.\n\nVideo akan otomatis dikirim ke chat ini setelah link dibuka.",
		"en": "To download this video, open the following link.\n\nThe video will be sent to this chat automatically after you open it.",
	},
	"dl_affiliate_confirm": {
		"id": "Untuk mendownload video ini, buka link berikut lalu tekan tombol konfirmasi.",
		"en": "To download this video, open the following link and then press the confirmation button.",
	},
	"dl_video_sent": {"id": "Berikut video yang kamu minta:", "en": "Here is the video you requested:"},
	"dl_video_url": {
		"id": "Berikut link video yang kamu minta:\n\n{title}",
		"en": "Here is the video link you requested:\n\n{title}",
	},
	"dl_session_expired": {
		"id": "Sesi download sudah expired. Klik tombol Download lagi di grup.",
		"en": "Download session expired. Click the Download button again in the group.",
	},
	"dl_already_used": {
		"id": "Link download ini sudah dipakai.",
		"en": "This download link was already used.",
	},
	"dl_not_found": {
		"id": "Video tidak ditemukan.",
		"en": "Video not found.",
	},
	"dl_error": {"id": "Terjadi kesalahan. Coba lagi nanti.", "en": "An error occurred. Try again later."},
}
