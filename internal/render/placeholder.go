package render

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// PlaceholderPDF builds the Tier 3 last-resort artifact: a minimal
// hand-assembled PDF stating that generation is in progress, tagged with
// the job's public identifier. It is pure byte assembly with no library or
// filesystem dependency, so the only way Tier 3 can fail is the final
// write to the artifact store.
func PlaceholderPDF(jobUUID uuid.UUID) []byte {
	content := fmt.Sprintf(
		"BT /F1 18 Tf 72 760 Td (Your CV is being generated) Tj ET\n"+
			"BT /F1 11 Tf 72 736 Td (Please check back shortly or regenerate the document.) Tj ET\n"+
			"BT /F1 9 Tf 72 60 Td (Generated by MorphCV - %s) Tj ET\n",
		shortID(jobUUID))

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)

	return buf.Bytes()
}
