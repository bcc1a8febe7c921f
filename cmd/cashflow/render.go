package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"cashflow/internal/app"
	"cashflow/internal/core"
	"cashflow/internal/services"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func signed(tx core.Transaction) string {
	if tx.IsIncome() {
		return "+" + core.FormatRupiah(tx.Amount.Amount, true)
	}
	return "-" + core.FormatRupiah(tx.Amount.Amount, true)
}

func renderTransactions(w io.Writer, txs []core.Transaction) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTANGGAL\tJAM\tKATEGORI\tKETERANGAN\tJUMLAH")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date.DisplayDate(), tx.Date.DisplayTime(), tx.Category, tx.Description, signed(tx))
	}
	return tw.Flush()
}

func renderPending(w io.Writer, pending []services.PendingSync) error {
	if len(pending) == 0 {
		fmt.Fprintln(w, "Semua data tersinkron")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tOP\tSEJAK\tALASAN")
	for _, p := range pending {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Op, p.Since.Format("15:04:05"), p.Reason)
	}
	return tw.Flush()
}

func renderDashboard(w io.Writer, v app.View) error {
	d := v.Dashboard
	fmt.Fprintf(w, "%s <%s>  tema %s\n\n", v.User.Name, v.User.Email, v.Theme)

	m := d.Monthly
	fmt.Fprintf(w, "Bulan %s\n", m.Month)
	tw := newTable(w)
	fmt.Fprintf(tw, "  Pemasukan\t%s\n", core.FormatRupiah(m.Income, true))
	fmt.Fprintf(tw, "  Pengeluaran\t%s\n", core.FormatRupiah(m.Expense, true))
	fmt.Fprintf(tw, "  Saldo\t%s\n", core.FormatRupiah(m.Balance, true))
	fmt.Fprintf(tw, "  Tabungan\t%.1f%%\n", m.SavingsRate)
	p := d.Projection
	fmt.Fprintf(tw, "  Rata-rata harian\t%s\n", core.FormatRupiahDecimal(p.DailyAverage, true))
	fmt.Fprintf(tw, "  Proyeksi akhir bulan\t%s\n", core.FormatRupiahDecimal(p.MonthEnd, true))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nSkor kesehatan %d (%s)\n", d.HealthScore, d.HealthBand)
	r := d.Radar
	fmt.Fprintf(w, "Radar  hemat %.0f  investasi %.0f  pendapatan %.0f  kesehatan %.0f  konsistensi %.0f\n",
		r.Thrift, r.Investment, r.IncomeScale, r.Health, r.Consistency)

	fmt.Fprintln(w, "\nTren 6 bulan")
	tw = newTable(w)
	for _, b := range d.Trend {
		fmt.Fprintf(tw, "  %s\t+%s\t-%s\n", b.Label, core.FormatRupiah(b.Income, true), core.FormatRupiah(b.Expense, true))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(d.TopCategories) > 0 {
		fmt.Fprintln(w, "\nKategori teratas")
		tw = newTable(w)
		for _, c := range d.TopCategories {
			fmt.Fprintf(tw, "  %s\t%s\t%.0f%%\n", c.Category, core.FormatRupiah(c.Total, true), c.Percent)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if d.Largest != nil {
		fmt.Fprintf(w, "\nTransaksi terbesar  %s %s\n", d.Largest.Description, signed(*d.Largest))
	}
	if len(d.Recent) > 0 {
		fmt.Fprintln(w, "\nTransaksi terakhir")
		if err := renderTransactions(w, d.Recent); err != nil {
			return err
		}
	}
	if len(v.Pending) > 0 {
		fmt.Fprintf(w, "\n%d perubahan belum tersinkron\n", len(v.Pending))
	}
	return nil
}
