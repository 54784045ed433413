package registry

// v4Tools lists the tools shipped with a standard GROMACS 4.x installation.
// Used as the last-resort candidate list for classic discovery.
var v4Tools = []string{
	"g_cluster", "g_dyndom", "g_mdmat", "g_principal", "g_select", "g_wham",
	"mdrun", "do_dssp", "g_clustsize", "g_enemat", "g_membed", "g_protonate",
	"g_sgangle", "g_wheel", "mdrun_d", "editconf", "g_confrms", "g_energy",
	"g_mindist", "g_rama", "g_sham", "g_x2top", "mk_angndx", "eneconv",
	"g_covar", "g_filter", "g_morph", "g_rdf", "g_sigeps", "genbox",
	"pdb2gmx", "g_anadock", "g_current", "g_gyrate", "g_msd", "g_sorient",
	"genconf", "g_anaeig", "g_density", "g_h2order", "g_nmeig", "g_rms",
	"g_spatial", "genion", "tpbconv", "g_analyze", "g_densmap", "g_hbond",
	"g_nmens", "g_rmsdist", "g_spol", "genrestr", "trjcat", "g_angle",
	"g_dielectric", "g_helix", "g_nmtraj", "g_rmsf", "g_tcaf", "gmxcheck",
	"trjconv", "g_bar", "g_dih", "g_helixorient", "g_order", "g_rotacf",
	"g_traj", "gmxdump", "trjorder", "g_bond", "g_dipoles", "g_kinetics",
	"g_pme_error", "g_rotmat", "g_tune_pme", "grompp", "g_bundle", "g_disre",
	"g_lie", "g_polystat", "g_saltbr", "g_vanhove", "make_edi", "xpm2ps",
	"g_chi", "g_dist", "g_luck", "g_potential", "g_sas", "g_velacc",
	"make_ndx",
}
