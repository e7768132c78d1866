package components

import twmerge "github.com/Oudwins/tailwind-merge-go"

// Class merges tailwind class lists, later classes winning conflicts.
func Class(classes ...string) string {
	return twmerge.Merge(classes...)
}

func buttonClass(extra string) string {
	return Class("inline-block rounded bg-indigo-600 px-4 py-2 text-white hover:bg-indigo-700", extra)
}

// alertClass colors an Alert. Variant is "error", "success" or "info".
func alertClass(variant string) string {
	color := "border-blue-300 bg-blue-50 text-blue-800"
	switch variant {
	case "error":
		color = "border-red-300 bg-red-50 text-red-800"
	case "success":
		color = "border-green-300 bg-green-50 text-green-800"
	}
	return Class("rounded border px-3 py-2 my-3 whitespace-pre-wrap", color)
}

func formEncoding(multipart bool) string {
	if multipart {
		return "multipart/form-data"
	}
	return "application/x-www-form-urlencoded"
}

func navClass(current bool) string {
	if current {
		return Class("block rounded px-2 py-1 hover:bg-gray-100", "bg-indigo-50 text-indigo-700 font-medium")
	}
	return "block rounded px-2 py-1 hover:bg-gray-100"
}
