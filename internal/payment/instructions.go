package payment

import (
	"strings"
)

// Per-method steps, keyed by upper-cased method name. Placeholders:
// {{payment_code}}, {{amount}}, {{expiry}}.
var methodInstructions = map[string][]string{
	"BCA": {
		"Buka aplikasi BCA Mobile, KlikBCA, atau ATM BCA",
		"Pilih menu m-Transfer → BCA Virtual Account",
		"Masukkan nomor Virtual Account {{payment_code}}",
		"Pastikan nominal {{amount}} sudah sesuai lalu masukkan PIN",
	},
	"BNI": {
		"Buka BNI Mobile Banking atau ATM BNI",
		"Pilih menu Transfer → Virtual Account Billing",
		"Masukkan nomor Virtual Account {{payment_code}}",
		"Periksa tagihan sebesar {{amount}} lalu konfirmasi",
	},
	"BRI": {
		"Buka BRImo atau ATM BRI",
		"Pilih menu Pembayaran → BRIVA",
		"Masukkan nomor BRIVA {{payment_code}}",
		"Pastikan nominal {{amount}} sudah sesuai lalu konfirmasi",
	},
	"MANDIRI": {
		"Buka aplikasi Livin’ by Mandiri atau ATM Mandiri",
		"Pilih menu Bayar → Multipayment",
		"Masukkan nomor Virtual Account {{payment_code}}",
		"Pastikan nominal {{amount}} sudah benar lalu selesaikan transaksi",
	},
	"PERMATA": {
		"Buka PermataMobile X atau ATM Permata",
		"Pilih menu Pembayaran Tagihan → Virtual Account",
		"Masukkan nomor Virtual Account {{payment_code}}",
		"Konfirmasi pembayaran sebesar {{amount}}",
	},
	"ALFAMART": {
		"Datang ke gerai Alfamart terdekat",
		"Tunjukkan kode pembayaran {{payment_code}} kepada kasir",
		"Bayar sesuai nominal {{amount}} dan simpan struk",
	},
	"INDOMARET": {
		"Datang ke gerai Indomaret terdekat",
		"Tunjukkan kode pembayaran {{payment_code}} kepada kasir",
		"Bayar sesuai nominal {{amount}} dan simpan struk",
	},
}

var categoryInstructions = map[Category][]string{
	CategoryQRIS: {
		"Buka aplikasi e-wallet atau mobile banking yang mendukung QRIS",
		"Pilih menu Scan / Bayar QR",
		"Scan kode QR yang ditampilkan",
		"Pastikan nominal pembayaran {{amount}} sudah sesuai",
		"Selesaikan pembayaran sebelum {{expiry}}",
	},
	CategoryVirtualAccount: {
		"Buka aplikasi mobile banking atau ATM bank Anda",
		"Pilih menu Transfer → Virtual Account",
		"Masukkan nomor Virtual Account {{payment_code}}",
		"Pastikan nominal {{amount}} sudah sesuai",
		"Selesaikan pembayaran sebelum {{expiry}}",
	},
	CategoryRetail: {
		"Datang ke gerai retail terdekat",
		"Tunjukkan kode pembayaran {{payment_code}} kepada kasir",
		"Bayar sesuai nominal {{amount}}",
	},
}

var fallbackInstructions = []string{
	"Ikuti instruksi pembayaran yang tersedia pada halaman ini",
}

// GetInstructions resolves steps by method name first, then by category.
func GetInstructions(method PaymentMethod) []string {
	name := strings.ToUpper(strings.TrimSpace(method.Name))
	for key, steps := range methodInstructions {
		if name == key || strings.HasPrefix(name, key+" ") || strings.HasSuffix(name, " "+key) {
			return steps
		}
	}

	if steps, ok := categoryInstructions[normalizeCategory(method.Category)]; ok {
		return steps
	}
	return fallbackInstructions
}

type InstructionVars map[string]string

func InjectVariables(
	steps []string,
	vars InstructionVars,
) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(
				updated,
				"{{"+key+"}}",
				value,
			)
		}
		result = append(result, updated)
	}

	return result
}
